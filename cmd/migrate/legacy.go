package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"antpi/internal/migrate"
)

func NewLegacyCmd(load loadConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Convert a legacy status.json and label files into records",
		Long: `Writes one structured record per entry of a legacy global status.json map,
then one record per stored image that only has a plain-text label file.
Every written record regenerates its plain-text derivative.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statusPath, _ := cmd.Flags().GetString("status")
			labelsDir, _ := cmd.Flags().GetString("labels")
			if statusPath == "" && labelsDir == "" {
				return fmt.Errorf("at least one of --status or --labels is required")
			}

			cfg := load()
			if recordsBackend, _ := cmd.Flags().GetString("backend"); recordsBackend != "" {
				cfg.RecordBackend = recordsBackend
			}

			store, log, cleanup, err := openStore(cfg, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := migrate.Legacy(store, statusPath, labelsDir, log)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d records from the status map and %d from label files\n",
				report.FromStatus, report.FromLabels)
			if report.DroppedLabels > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Dropped %d invalid labels\n", report.DroppedLabels)
			}
			for _, name := range report.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().String("status", "", "Path of the legacy status.json map")
	cmd.Flags().String("labels", "", "Directory of legacy plain-text label files")
	cmd.Flags().String("backend", "", "Record backend to write (json|status), defaults to RECORD_BACKEND")
	return cmd
}
