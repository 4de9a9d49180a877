package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"tribeboard/internal/cloudsync"
	"tribeboard/internal/container"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull remote changes once",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := container.Open(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			if store.Mode != container.ModeCloud {
				return errors.New("cloud sync is unavailable: set CLOUD_MODE and check the cloud database")
			}

			report, err := cloudsync.NewEngine(store.DB, store.Cloud, a.logger).SyncNow(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
