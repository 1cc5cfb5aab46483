package main

import (
	"os"

	"github.com/boddenberg/billstats-bfa/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
