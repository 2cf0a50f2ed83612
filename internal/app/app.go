package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"antpi/internal/config"
	"antpi/internal/logger"
	"antpi/internal/migrate"
	"antpi/internal/repository"
	"antpi/internal/repository/jsonfile"
	"antpi/internal/repository/sqlite"
	"antpi/internal/repository/statusfile"
	"antpi/internal/route"
	"antpi/internal/service"
	"antpi/internal/service/catalog"
	"antpi/internal/service/export"
	"antpi/internal/service/metadata"
	"antpi/internal/service/storage"
	"antpi/internal/service/watcher"
	"antpi/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	store      *storage.Store
	hubService *websocket.HubService
	watcher    *watcher.Watcher
	manager    *service.Manager
}

// OpenRecords opens the configured authoritative record backend and returns
// it with the path the exporter archives under jsons/.
func OpenRecords(cfg *config.Config) (repository.RecordRepository, string, error) {
	switch cfg.RecordBackend {
	case config.RecordBackendJSON:
		repo, err := jsonfile.NewRecordRepository(cfg.RecordDirectory)
		if err != nil {
			return nil, "", err
		}
		return repo, repo.Dir(), nil
	case config.RecordBackendStatus:
		repo, err := statusfile.NewRecordRepository(cfg.RecordDirectory)
		if err != nil {
			return nil, "", err
		}
		return repo, repo.Path(), nil
	}
	return nil, "", fmt.Errorf("unknown record backend %q", cfg.RecordBackend)
}

func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	records, recordsPath, err := OpenRecords(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.ImageDirectory, cfg.LabelDirectory, records, nil, log)
	if err != nil {
		return nil, err
	}

	var db *sqlite.DB
	if cfg.IndexDBPath != "" {
		db, err = OpenIndex(cfg.IndexDBPath, store, log)
		if err != nil {
			log.Warning("Record index disabled: %v", err)
		} else {
			store, err = storage.NewStore(cfg.ImageDirectory, cfg.LabelDirectory, records, sqlite.NewRecordRepository(db), log)
			if err != nil {
				db.Close()
				return nil, err
			}
		}
	}

	extractor := metadata.NewExtractor(cfg.ExtractMetadata)
	cat := catalog.NewCatalog(store, extractor, cfg.Location, log)
	exporter := export.NewExporter(store, cat, recordsPath, log)
	hub := websocket.NewHubService(cfg, log)

	a := &App{
		config:     cfg,
		logger:     log,
		db:         db,
		store:      store,
		hubService: hub,
		manager:    service.NewManager(store, cat, extractor, exporter, hub, log),
	}
	if cfg.WatchImageDir {
		a.watcher = watcher.NewWatcher(store, extractor, hub, cfg.WatchDebounce, log)
	}
	return a, nil
}

// OpenIndex opens the SQLite index at path and rebuilds it from the records
// of store, so it never serves entries written while it was not attached.
func OpenIndex(path string, store *storage.Store, log *logger.Logger) (*sqlite.DB, error) {
	db, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if _, err := migrate.Reindex(store, sqlite.NewRecordRepository(db), log); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Handler returns the fully routed HTTP handler.
func (a *App) Handler() http.Handler {
	return route.SetupRoutes(a.manager, a.config, a.logger)
}

// Run serves HTTP until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				a.logger.Error("Image directory watcher stopped: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("AntPi dataset server on http://localhost:%d", a.config.Port)
	a.logger.Info("Images: %s, labels: %s, records: %s (%s backend)",
		a.config.ImageDirectory, a.config.LabelDirectory, a.config.RecordDirectory, a.config.RecordBackend)
	if a.db != nil {
		a.logger.Info("Record index: %s", a.config.IndexDBPath)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Close releases the index database.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
