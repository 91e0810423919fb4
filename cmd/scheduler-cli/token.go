package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/semester-scheduler/internal/models"
	"github.com/noah-isme/semester-scheduler/internal/service"
	"github.com/noah-isme/semester-scheduler/pkg/config"
)

type tokenOptions struct {
	userID string
	email  string
	role   string
	ttl    time.Duration
}

func newTokenCmd() *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for the API with the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			token, err := issueToken(cfg.JWT, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.userID, "user", "", "user id placed in the token subject")
	flags.StringVar(&opts.email, "email", "", "optional email claim")
	flags.StringVar(&opts.role, "role", string(models.RoleAdmin), "role: SUPERADMIN, ADMIN, TEACHER or STUDENT")
	flags.DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func issueToken(cfg config.JWTConfig, opts *tokenOptions) (string, error) {
	role := models.UserRole(strings.ToUpper(opts.role))
	switch role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher, models.RoleStudent:
	default:
		return "", fmt.Errorf("unknown role %q", opts.role)
	}
	if cfg.Secret == "" {
		return "", fmt.Errorf("JWT_SECRET is not configured")
	}
	if opts.ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.Secret, Issuer: cfg.Issuer})
	return tokens.Issue(models.UserInfo{ID: opts.userID, Email: opts.email, Role: role}, opts.ttl)
}
