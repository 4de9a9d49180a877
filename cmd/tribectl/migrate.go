package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tribeboard/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(cmd.Context(), a.cfg.DatabaseType, a.cfg.DatabasePath, a.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			return runMigrations(cmd.Context(), db, cmd)
		},
	}
}

func runMigrations(ctx context.Context, db *database.DB, cmd *cobra.Command) error {
	applied, err := db.RunMigrations(ctx)
	for _, name := range applied {
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
	}
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
	}
	return nil
}
