package admin

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lms/internal/common"
	"github.com/dmitrijs2005/lms/internal/server/auth"
	"github.com/dmitrijs2005/lms/internal/server/services"
	"github.com/spf13/cobra"
)

const dbPingTimeout = 5 * time.Second

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.config()
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), c, func(db *sql.DB) error {
				if err := newRepoManager().RunMigrations(cmd.Context(), db); err != nil {
					return fmt.Errorf("migrations error: %w", err)
				}
				printf(cmd.OutOrStdout(), "migrations applied\n")
				return nil
			})
		},
	}
}

func newCreateUserCmd(g *globals) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.config()
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}

			var pw []byte
			if passwordStdin {
				pw, err = readPasswordLine(cmd.InOrStdin())
			} else {
				pw, err = promptPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			logger := g.logger(cmd)
			secret := []byte(c.SecretKey)
			issuer, err := auth.NewIssuer(secret, logger)
			if err != nil {
				return err
			}
			verifier, err := auth.NewVerifier(secret, logger)
			if err != nil {
				return err
			}

			return withDB(cmd.Context(), c, func(db *sql.DB) error {
				us := services.NewUserService(db, newRepoManager(), auth.NewHasher(c.BcryptCost), issuer, verifier, logger)
				u, err := us.CreateUser(cmd.Context(), email, string(pw))
				if errors.Is(err, common.ErrorAlreadyExists) {
					return fmt.Errorf("user %s already exists", email)
				}
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "created user %s (id %d)\n", u.Email, u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newIssueTokenCmd(g *globals) *cobra.Command {
	var (
		email     string
		tokenType string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign a token for an identity without a password check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.config()
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}

			issuer, err := auth.NewIssuer([]byte(c.SecretKey), g.logger(cmd),
				auth.WithTTLs(c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration))
			if err != nil {
				return err
			}

			var token string
			switch auth.TokenType(tokenType) {
			case auth.TokenTypeAccess:
				if ttl == 0 {
					ttl = c.AccessTokenValidityDuration
				}
				token, err = issuer.IssueAccess(cmd.Context(), email, ttl)
			case auth.TokenTypeRefresh:
				if ttl == 0 {
					ttl = c.RefreshTokenValidityDuration
				}
				token, err = issuer.IssueRefresh(cmd.Context(), email, ttl)
			default:
				return fmt.Errorf("unknown token type %q (want access or refresh)", tokenType)
			}
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "identity to put in the subject claim")
	cmd.Flags().StringVar(&tokenType, "type", string(auth.TokenTypeAccess), "access or refresh")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
