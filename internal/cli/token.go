package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/service"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token signed with SUPABASE_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("SUPABASE_JWT_SECRET")
			if secret == "" {
				return errors.New("SUPABASE_JWT_SECRET is not set")
			}
			tok, err := service.NewTokenService(secret).Issue(userID, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the sub claim (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	return cmd
}
