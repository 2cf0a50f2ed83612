package catalog

import (
	"slices"
	"strings"
	"time"

	"antpi/internal/dto"
	"antpi/internal/logger"
	"antpi/internal/model"
	"antpi/internal/service/metadata"
	"antpi/internal/service/storage"
)

// TimestampLayout is the capture timestamp the clients put before the
// first underscore of a filename, e.g. 2023-07-20T20-19-46+0200_b8-27-eb.jpeg.
const TimestampLayout = "2006-01-02T15-04-05-0700"

// timestampLayouts also accept a Z offset and a colon in the offset.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15-04-05Z0700",
	"2006-01-02T15-04-05Z07:00",
}

// Catalog builds the gallery listing from the image root.
type Catalog struct {
	store     *storage.Store
	extractor *metadata.Extractor
	location  *time.Location
	logger    *logger.Logger
}

// NewCatalog creates a Catalog. Display timestamps are rendered in location.
func NewCatalog(store *storage.Store, extractor *metadata.Extractor, location *time.Location, logger *logger.Logger) *Catalog {
	if location == nil {
		location = time.Local
	}
	return &Catalog{store: store, extractor: extractor, location: location, logger: logger}
}

// Location returns the zone display timestamps are rendered in.
func (c *Catalog) Location() *time.Location {
	return c.location
}

// ParseTimestamp reads the capture time from the filename prefix.
func ParseTimestamp(filename string) (time.Time, bool) {
	prefix, _, _ := strings.Cut(storage.Stem(filename), "_")
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, prefix); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// List returns every stored image, newest first, with the filters applied.
// Ordering uses the filename timestamp and falls back to the file's mtime,
// so it is only best-effort across the two sources.
func (c *Catalog) List(filters dto.ImageFilters) ([]model.CatalogEntry, error) {
	files, err := c.store.ListImages()
	if err != nil {
		return nil, err
	}

	isLabeled, err := c.store.LabeledChecker()
	if err != nil {
		c.logger.Warning("Labeled status unavailable, treating all images as unlabeled: %v", err)
		isLabeled = func(string) bool { return false }
	}

	query := strings.ToLower(strings.TrimSpace(filters.Query))

	entries := make([]model.CatalogEntry, 0, len(files))
	for _, f := range files {
		if query != "" && !strings.Contains(strings.ToLower(f.Name), query) {
			continue
		}

		labeled := isLabeled(f.Name)
		if filters.UnlabeledOnly && labeled {
			continue
		}

		ts, ok := ParseTimestamp(f.Name)
		if !ok {
			ts = f.ModTime
		}

		entries = append(entries, model.CatalogEntry{
			Filename:    f.Name,
			Timestamp:   ts.In(c.location),
			Metadata:    c.extractor.ExtractFile(c.store.ImagePath(f.Name)),
			LabelsCount: c.store.LabelsCount(f.Name),
			IsLabeled:   labeled,
		})
	}

	slices.SortStableFunc(entries, func(a, b model.CatalogEntry) int {
		if n := b.Timestamp.Compare(a.Timestamp); n != 0 {
			return n
		}
		return strings.Compare(b.Filename, a.Filename)
	})

	return entries, nil
}
