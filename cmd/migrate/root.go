package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"antpi/internal/app"
	"antpi/internal/config"
	"antpi/internal/logger"
	"antpi/internal/repository/sqlite"
	"antpi/internal/service/storage"
)

// loadConfig yields the configuration the subcommands operate on.
type loadConfig func() *config.Config

func NewRootCmd(load loadConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "One-time maintenance for the AntPi dataset store",
		Long:          `Converts legacy annotation layouts into per-image records and rebuilds the record index.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(
		NewLegacyCmd(load),
		NewReindexCmd(load),
	)
	return rootCmd
}

// openStore opens the configured record backend and store. With
// attachIndex the configured index is rebuilt and receives every record
// the command writes. The logger only writes to the log files and to out.
// The returned cleanup closes both.
func openStore(cfg *config.Config, out io.Writer, attachIndex bool) (*storage.Store, *logger.Logger, func(), error) {
	log, err := logger.New(cfg.LogDirectory, out, out)
	if err != nil {
		return nil, nil, nil, err
	}

	records, _, err := app.OpenRecords(cfg)
	if err != nil {
		log.Close()
		return nil, nil, nil, err
	}

	store, err := storage.NewStore(cfg.ImageDirectory, cfg.LabelDirectory, records, nil, log)
	if err != nil {
		log.Close()
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	if !attachIndex || cfg.IndexDBPath == "" {
		return store, log, func() { log.Close() }, nil
	}

	db, err := app.OpenIndex(cfg.IndexDBPath, store, log)
	if err != nil {
		log.Close()
		return nil, nil, nil, err
	}
	store, err = storage.NewStore(cfg.ImageDirectory, cfg.LabelDirectory, records, sqlite.NewRecordRepository(db), log)
	if err != nil {
		db.Close()
		log.Close()
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	return store, log, func() {
		db.Close()
		log.Close()
	}, nil
}
