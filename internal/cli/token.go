package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"kheelo-quiz-service/internal/auth"
	"kheelo-quiz-service/internal/config"
)

// NewTokenCmd mints an admin JWT signed with the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return fmt.Errorf("admin jwt secret not configured")
			}
			token, err := auth.IssueAdminToken(cfg.Admin.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "admin identifier stored in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
