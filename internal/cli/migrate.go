package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/boddenberg/billstats-bfa/internal/infra/sqlite"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the local SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir := filepath.Dir(dbPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("creating %s: %w", dir, err)
				}
			}
			if err := sqlite.RunMigrations(dbPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", envOr("SQLITE_PATH", "./data/billstats.db"), "SQLite database path")

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
