// Package migrate converts legacy annotation layouts into per-image records
// and rebuilds the SQLite record index.
package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"antpi/internal/logger"
	"antpi/internal/model"
	"antpi/internal/service/storage"
)

// LegacyReport summarizes a legacy conversion.
type LegacyReport struct {
	FromStatus    int
	FromLabels    int
	DroppedLabels int
	Skipped       []string
}

// Legacy writes a record for every entry of the legacy status map at
// statusPath, then for every stored image that still has no record but
// has a plain-text file in labelsDir. An empty statusPath or labelsDir
// skips that source. Existing records are never overwritten by the
// plain-text pass.
func Legacy(store *storage.Store, statusPath, labelsDir string, logger *logger.Logger) (LegacyReport, error) {
	var report LegacyReport

	if statusPath != "" {
		status, err := readStatus(statusPath)
		if err != nil {
			return report, err
		}

		names := make([]string, 0, len(status))
		for name := range status {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			labels, dropped, ok := decodeLegacyEntry(status[name])
			if !ok || storage.ValidateName(name) != nil {
				logger.Warning("Skipping unreadable status entry %q", name)
				report.Skipped = append(report.Skipped, name)
				continue
			}
			if err := store.PutAnnotation(name, labels); err != nil {
				return report, err
			}
			report.FromStatus++
			report.DroppedLabels += dropped
		}
	}

	if labelsDir != "" {
		images, err := store.ListImages()
		if err != nil {
			return report, err
		}
		for _, img := range images {
			if _, ok, err := store.Records().Get(img.Name); err != nil || ok {
				continue
			}
			data, err := os.ReadFile(filepath.Join(labelsDir, storage.Stem(img.Name)+".txt"))
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return report, fmt.Errorf("read labels for %s: %w", img.Name, err)
			}
			if err := store.PutAnnotation(img.Name, storage.ParseLabels(data)); err != nil {
				return report, err
			}
			report.FromLabels++
		}
	}

	logger.Info("Legacy migration: %d from status map, %d from label files, %d dropped labels, %d skipped",
		report.FromStatus, report.FromLabels, report.DroppedLabels, len(report.Skipped))
	return report, nil
}

func readStatus(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read status map: %w", err)
	}
	var status map[string]json.RawMessage
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode status map %s: %w", path, err)
	}
	return status, nil
}

// decodeLegacyEntry validates each label the old UI stored. ok is false
// when the entry is not a label array at all.
func decodeLegacyEntry(raw json.RawMessage) (labels []model.Label, dropped int, ok bool) {
	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0, false
	}
	labels = make([]model.Label, 0, len(entries))
	for _, e := range entries {
		label, err := model.ParseLabel(e)
		if err != nil {
			dropped++
			continue
		}
		labels = append(labels, label)
	}
	return labels, dropped, true
}

// Index is the record index rebuilt by Reindex.
type Index interface {
	Rebuild(records map[string][]model.Label) error
}

type recordLister interface {
	All() (map[string][]model.Label, error)
}

// Reindex replaces the index with the authoritative records of every
// stored image, plus every record a listing-capable backend holds for
// images that are gone. It returns the number of indexed records.
func Reindex(store *storage.Store, index Index, logger *logger.Logger) (int, error) {
	records := make(map[string][]model.Label)

	if lister, ok := store.Records().(recordLister); ok {
		all, err := lister.All()
		if err != nil {
			return 0, err
		}
		for name, labels := range all {
			records[name] = labels
		}
	}

	images, err := store.ListImages()
	if err != nil {
		return 0, err
	}
	for _, img := range images {
		labels, ok, err := store.Records().Get(img.Name)
		if err != nil {
			logger.Warning("Skipping record for %s: %v", img.Name, err)
			continue
		}
		if ok {
			records[img.Name] = labels
		}
	}

	if err := index.Rebuild(records); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	logger.Info("Reindexed %d records", len(records))
	return len(records), nil
}
