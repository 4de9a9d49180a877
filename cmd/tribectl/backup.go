package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tribeboard/internal/service"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import profiles, families and memberships",
	}
	cmd.AddCommand(newBackupExportCmd(a), newBackupImportCmd(a))
	return cmd
}

func newBackupExportCmd(a *app) *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the store to a JSON or YAML file",
		Example: `  tribectl backup export
  tribectl backup export --output backups/family.yaml
  tribectl backup export --output - --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			backupFormat, err := resolveFormat(format, output)
			if err != nil {
				return err
			}

			db, err := a.openLocal(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			backupService := service.NewBackupService(db, a.logger)

			if output == "-" {
				return backupService.Export(cmd.Context(), cmd.OutOrStdout(), backupFormat)
			}

			// Ensure directory exists
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create backup file: %w", err)
			}
			if err := backupService.Export(cmd.Context(), f, backupFormat); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write backup file: %w", err)
			}

			if info, err := os.Stat(output); err == nil {
				a.logger.Info("export complete", zap.String("path", output), zap.Int64("bytes", info.Size()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `Output file path, "-" for stdout (default: backup_YYYYMMDD_HHMMSS.json)`)
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from the file extension)")
	return cmd
}

func newBackupImportCmd(a *app) *cobra.Command {
	var input, format string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a backup, overwriting rows with the same ids",
		Long: `Import upserts every profile, family and membership in the backup and
marks them for the next cloud sync. Rows not in the backup are left alone.`,
		Example: `  tribectl backup import --input backup.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			backupFormat, err := resolveFormat(format, input)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("failed to open backup file: %w", err)
				}
				defer f.Close()
				r = f
			}

			db, err := a.openLocal(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := service.NewBackupService(db, a.logger).Import(cmd.Context(), r, backupFormat)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d profiles, %d families, %d memberships\n",
				stats.Profiles, stats.Families, stats.Memberships)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", `Input file path, "-" for stdin (required)`)
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from the file extension)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// resolveFormat prefers an explicit --format over the file extension
func resolveFormat(format, path string) (service.BackupFormat, error) {
	if format != "" {
		return service.ParseBackupFormat(format)
	}
	return service.FormatForPath(path), nil
}
