// Package cli implements billstatsctl, the operator and developer command line.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "billstatsctl",
		Short:   "Bill statistics tooling",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newStatsCommand(),
		newMigrateCommand(),
		newTokenCommand(),
		newCategoriesCommand(),
	)

	return rootCmd
}
