// Command tribectl administers a TribeBoard store: backups, one-shot sync and
// migrations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tribeboard/internal/config"
	"tribeboard/internal/database"
	"tribeboard/internal/logging"
)

// app carries what every subcommand needs once the root command has run
type app struct {
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tribectl",
		Short: "TribeBoard administration tool",
		Long: `tribectl manages the TribeBoard store configured by the server's
environment variables (DATABASE_TYPE, DB_PATH, DATABASE_URL, CLOUD_MODE, ...).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if a.verbose {
				level = "debug"
			}
			logger, err := logging.New(level)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newBackupCmd(a), newSyncCmd(a), newMigrateCmd(a))
	return root
}

// openLocal opens the configured local database and brings its schema up to date
func (a *app) openLocal(ctx context.Context) (*database.DB, error) {
	db, err := database.Open(ctx, a.cfg.DatabaseType, a.cfg.DatabasePath, a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
