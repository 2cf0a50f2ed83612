package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"antpi/internal/migrate"
	"antpi/internal/repository/sqlite"
)

func NewReindexCmd(load loadConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the SQLite record index from the authoritative records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := load()
			if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
				cfg.IndexDBPath = dbPath
			}
			if cfg.IndexDBPath == "" {
				return fmt.Errorf("no index configured: set INDEX_DB_PATH or --db")
			}

			store, log, cleanup, err := openStore(cfg, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			db, err := sqlite.New(cfg.IndexDBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := migrate.Reindex(store, sqlite.NewRecordRepository(db), log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d records into %s\n", n, cfg.IndexDBPath)
			return nil
		},
	}

	cmd.Flags().String("db", "", "Index database path, defaults to INDEX_DB_PATH")
	return cmd
}
