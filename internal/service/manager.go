package service

import (
	"path/filepath"

	"antpi/internal/dto"
	"antpi/internal/logger"
	"antpi/internal/model"
	"antpi/internal/service/catalog"
	"antpi/internal/service/export"
	"antpi/internal/service/metadata"
	"antpi/internal/service/storage"
	"antpi/internal/service/websocket"
)

// Manager ties the storage, catalog and live-update services together
// behind the HTTP handlers.
type Manager struct {
	store            *storage.Store
	catalog          *catalog.Catalog
	extractor        *metadata.Extractor
	exporter         *export.Exporter
	websocketService *websocket.HubService
	logger           *logger.Logger
}

func NewManager(store *storage.Store, catalog *catalog.Catalog, extractor *metadata.Extractor,
	exporter *export.Exporter, websocketService *websocket.HubService, logger *logger.Logger) *Manager {
	return &Manager{
		store:            store,
		catalog:          catalog,
		extractor:        extractor,
		exporter:         exporter,
		websocketService: websocketService,
		logger:           logger,
	}
}

// ReceiveImage stores an uploaded image and announces it to live
// subscribers. It returns the stored name and the extracted metadata.
func (m *Manager) ReceiveImage(filename string, data []byte) (string, model.Metadata, error) {
	path, err := m.store.PutImage(filename, data)
	if err != nil {
		return "", model.Metadata{}, err
	}
	name := filepath.Base(path)

	md := m.extractor.Extract(data)
	m.websocketService.PublishNewImage(name, &md)

	m.logger.Info("Received image %s (%d bytes)", name, len(data))
	return name, md, nil
}

func (m *Manager) ListImages(filters dto.ImageFilters) ([]model.CatalogEntry, error) {
	return m.catalog.List(filters)
}

func (m *Manager) GetLabels(filename string) ([]model.Label, error) {
	return m.store.GetAnnotation(filename)
}

// SaveResult reports how many of the received labels were kept and how
// many of those are true positives.
type SaveResult struct {
	Total int
	Saved int
	Kept  int
}

// SaveLabels validates every raw entry, drops the invalid ones and replaces
// the annotation of filename with the rest.
func (m *Manager) SaveLabels(filename string, raw []map[string]any) (SaveResult, error) {
	if err := storage.ValidateName(filename); err != nil {
		return SaveResult{}, err
	}

	labels := make([]model.Label, 0, len(raw))
	for i, entry := range raw {
		label, err := model.ParseLabel(entry)
		if err != nil {
			m.logger.Warning("Dropping label %d for %s: %v", i, filename, err)
			continue
		}
		labels = append(labels, label)
	}

	if err := m.store.PutAnnotation(filename, labels); err != nil {
		return SaveResult{}, err
	}

	result := SaveResult{
		Total: len(raw),
		Saved: len(labels),
		Kept:  len(model.TruePositives(labels)),
	}
	m.logger.Info("Saved %d labels for %s (%d true positives, %d received)", result.Saved, filename, result.Kept, result.Total)
	return result, nil
}

func (m *Manager) DeleteImage(filename string) (dto.RemovedFiles, error) {
	removed, err := m.store.Delete(filename)
	if err != nil {
		return removed, err
	}
	m.logger.Info("Delete %s: %s (image=%t labels=%t json=%t)", filename, removed.Status(), removed.Image, removed.Labels, removed.JSON)
	return removed, nil
}

func (m *Manager) ExportAll() ([]byte, error) {
	return m.exporter.ExportAll()
}

func (m *Manager) ExportRange(r export.DateRange) ([]byte, error) {
	data, count, err := m.exporter.ExportRange(r)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Exported %d images for %s to %s", count, r.From, r.To)
	return data, nil
}

func (m *Manager) Thumbnail(filename string, size int) ([]byte, error) {
	return m.store.Thumbnail(filename, size)
}

func (m *Manager) GetStore() *storage.Store {
	return m.store
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}
