// Package jsonfile keeps one JSON annotation record per image, named after
// the image's stem.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"antpi/internal/model"
	"antpi/internal/repository"
)

// RecordRepository implements repository.RecordRepository with <stem>.json files.
type RecordRepository struct {
	dir string
}

// NewRecordRepository creates the record directory if needed.
func NewRecordRepository(dir string) (*RecordRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create record directory: %w", err)
	}
	return &RecordRepository{dir: dir}, nil
}

// Dir returns the record directory.
func (r *RecordRepository) Dir() string {
	return r.dir
}

// Path returns the record file for an image filename.
func (r *RecordRepository) Path(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return filepath.Join(r.dir, stem+".json")
}

// Get reads the record. Missing, unreadable and corrupt files are all
// reported as absent.
func (r *RecordRepository) Get(filename string) ([]model.Label, bool, error) {
	data, err := os.ReadFile(r.Path(filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read record %s: %w", filename, err)
	}

	var labels []model.Label
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, false, nil
	}
	if labels == nil {
		return nil, false, nil
	}
	return labels, true, nil
}

// Put replaces the record atomically.
func (r *RecordRepository) Put(filename string, labels []model.Label) error {
	if labels == nil {
		labels = []model.Label{}
	}
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", filename, err)
	}
	return repository.WriteFileAtomic(r.Path(filename), data, 0644)
}

// Delete removes the record file.
func (r *RecordRepository) Delete(filename string) (bool, error) {
	err := os.Remove(r.Path(filename))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("delete record %s: %w", filename, err)
}
