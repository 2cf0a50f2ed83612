// Package statusfile keeps every annotation record in a single status.json
// map of image filename to label array.
package statusfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"antpi/internal/model"
	"antpi/internal/repository"
)

// FileName is the name of the shared status map.
const FileName = "status.json"

// ErrCorrupt is returned by writes while status.json cannot be parsed, so
// a damaged map is never replaced by a map holding only the new entry.
var ErrCorrupt = errors.New(FileName + " is corrupt")

// RecordRepository implements repository.RecordRepository over status.json.
// Read-modify-write cycles are serialized and committed with a rename.
type RecordRepository struct {
	path string
	mu   sync.Mutex
}

// NewRecordRepository uses dir/status.json, creating dir if needed.
func NewRecordRepository(dir string) (*RecordRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create status directory: %w", err)
	}
	return &RecordRepository{path: filepath.Join(dir, FileName)}, nil
}

// Path returns the location of status.json.
func (r *RecordRepository) Path() string {
	return r.path
}

// load reads the raw map for reading. A missing or corrupt file is an
// empty map.
func (r *RecordRepository) load() (map[string]json.RawMessage, error) {
	status, err := r.loadForWrite()
	if errors.Is(err, ErrCorrupt) {
		return map[string]json.RawMessage{}, nil
	}
	return status, err
}

// loadForWrite reads the raw map ahead of a rewrite. A missing file is an
// empty map; a corrupt one is ErrCorrupt.
func (r *RecordRepository) loadForWrite() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}

	status := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if status == nil {
		// a literal null
		return nil, ErrCorrupt
	}
	return status, nil
}

func (r *RecordRepository) save(status map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", FileName, err)
	}
	return repository.WriteFileAtomic(r.path, data, 0644)
}

func decodeEntry(raw json.RawMessage) ([]model.Label, bool) {
	var labels []model.Label
	if err := json.Unmarshal(raw, &labels); err != nil || labels == nil {
		return nil, false
	}
	return labels, true
}

// Get returns the entry for filename; entries that are not label arrays
// count as absent.
func (r *RecordRepository) Get(filename string) ([]model.Label, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := r.load()
	if err != nil {
		return nil, false, err
	}
	raw, ok := status[filename]
	if !ok {
		return nil, false, nil
	}
	labels, ok := decodeEntry(raw)
	return labels, ok, nil
}

// Put replaces the entry for filename.
func (r *RecordRepository) Put(filename string, labels []model.Label) error {
	if labels == nil {
		labels = []model.Label{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", filename, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := r.loadForWrite()
	if err != nil {
		return err
	}
	status[filename] = raw
	return r.save(status)
}

// Delete removes the entry for filename.
func (r *RecordRepository) Delete(filename string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := r.loadForWrite()
	if err != nil {
		return false, err
	}
	if _, ok := status[filename]; !ok {
		return false, nil
	}
	delete(status, filename)
	return true, r.save(status)
}

// Labeled lists the filenames whose entry holds at least one label.
func (r *RecordRepository) Labeled() (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := r.load()
	if err != nil {
		return nil, err
	}
	labeled := make(map[string]bool, len(status))
	for name, raw := range status {
		if labels, ok := decodeEntry(raw); ok && len(labels) > 0 {
			labeled[name] = true
		}
	}
	return labeled, nil
}

// All returns every decodable entry. Used by the migration tool.
func (r *RecordRepository) All() (map[string][]model.Label, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := r.load()
	if err != nil {
		return nil, err
	}
	all := make(map[string][]model.Label, len(status))
	for name, raw := range status {
		if labels, ok := decodeEntry(raw); ok {
			all[name] = labels
		}
	}
	return all, nil
}
