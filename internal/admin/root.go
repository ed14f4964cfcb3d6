// Package admin implements lmsctl, the operator command line of the LMS
// backend. It shares configuration loading with the server and talks to
// the database directly.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrijs2005/lms/internal/dbx"
	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/dmitrijs2005/lms/internal/server/config"
	"github.com/dmitrijs2005/lms/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

// seams for tests
var (
	loadConfig     = config.LoadConfig
	openDB         = dbx.Open
	newRepoManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
)

type globals struct {
	dsn       string
	secretKey string
	verbose   bool
}

// NewRootCmd builds the lmsctl command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "lmsctl",
		Short:         "Administer an LMS backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&g.dsn, "dsn", "", "PostgreSQL DSN (overrides LMS_DATABASE_DSN)")
	cmd.PersistentFlags().StringVar(&g.secretKey, "secret-key", "", "token signing key (overrides LMS_SECRET_KEY)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		newMigrateCmd(g),
		newCreateUserCmd(g),
		newIssueTokenCmd(g),
	)
	return cmd
}

// config loads the server configuration and applies command-line overrides.
func (g *globals) config() (*config.Config, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if g.dsn != "" {
		c.DatabaseDSN = g.dsn
	}
	if g.secretKey != "" {
		c.SecretKey = g.secretKey
	}
	return c, nil
}

func (g *globals) logger(cmd *cobra.Command) logging.Logger {
	if !g.verbose {
		return logging.Nop()
	}
	return logging.NewJSONLogger(cmd.ErrOrStderr(), slog.LevelDebug)
}

// withDB opens the configured database, runs fn and closes the pool.
func withDB(ctx context.Context, c *config.Config, fn func(db *sql.DB) error) error {
	db, err := openDB(ctx, c.DatabaseDSN, dbPingTimeout)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
