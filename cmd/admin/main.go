// Package main implements the admin CLI for schema migrations and account bootstrap.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tracked/backend/internal/config"
	"github.com/tracked/backend/internal/database"
	"github.com/tracked/backend/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	connectFunc      = database.Connect
	loadConfigFunc   = config.Load
)

// env holds what every subcommand needs. It is filled lazily so "--help" works without a database.
type env struct {
	cfg    *config.Config
	db     *sql.DB
	logger *zap.Logger
}

func main() {
	e := &env{}
	if err := newRootCmd(e).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tracked-admin",
		Short: "Administrative tasks for the Tracked feedback service",
		Long: `tracked-admin runs schema migrations and bootstraps accounts.

Examples:
  # Apply pending migrations
  tracked-admin migrate up

  # Create the first super admin (the password is prompted)
  tracked-admin create-user --email root@example.com --role SUPER_ADMIN

  # Fill an empty database with demo accounts and feedback
  tracked-admin seed`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
	}

	rootCmd.AddCommand(newMigrateCmd(e))
	rootCmd.AddCommand(newCreateUserCmd(e))
	rootCmd.AddCommand(newSeedCmd(e))
	return rootCmd
}

// open loads the configuration and connects to the database unless that already happened
func (e *env) open() error {
	if e.cfg == nil {
		cfg, err := loadConfigFunc()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		e.cfg = cfg
	}
	if e.logger == nil {
		if err := logger.Init(e.cfg.Logging.Level); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		e.logger = logger.Logger
	}
	if e.db == nil {
		db, err := connectFunc(e.cfg.DSN())
		if err != nil {
			return err
		}
		e.db = db
	}
	return nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
		e.db = nil
	}
	logger.Sync()
}
