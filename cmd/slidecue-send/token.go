package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/slidecue/slidecue/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		operator string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the write API",
		Long:  "Signs an access token with JWT_SECRET for use as a Bearer token on session and transcript writes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := auth.GenerateAccessToken(secret, operator, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "operator", "operator name recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.AccessTokenDuration, "token lifetime")
	return cmd
}
