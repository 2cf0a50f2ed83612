package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"antpi/internal/dto"
	"antpi/internal/logger"
	"antpi/internal/model"
	"antpi/internal/repository"
)

var (
	// ErrInvalidFilename is returned for empty names and names that would
	// escape the storage directories.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrInvalidExtension is returned for uploads that are not .jpg/.jpeg.
	ErrInvalidExtension = errors.New("invalid file type")
	// ErrNotFound is returned when the requested image is not stored.
	ErrNotFound = errors.New("image not found")
)

// ingestMemory is how long a name written by PutImage is remembered, so the
// directory watcher does not announce it a second time.
const ingestMemory = time.Minute

// Store persists images, their plain-text YOLO label derivative and their
// structured annotation record.
type Store struct {
	imagesDir string
	labelsDir string
	records   repository.RecordRepository
	index     repository.RecordRepository
	logger    *logger.Logger

	// set once an index write fails; the index is not consulted after that
	indexStale atomic.Bool

	mu       sync.Mutex
	ingested map[string]time.Time
}

// NewStore creates the image and label directories. index may be nil; when
// set it receives a copy of every record write and must already hold the
// records of the authoritative backend.
func NewStore(imagesDir, labelsDir string, records, index repository.RecordRepository, logger *logger.Logger) (*Store, error) {
	for _, dir := range []string{imagesDir, labelsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &Store{
		imagesDir: imagesDir,
		labelsDir: labelsDir,
		records:   records,
		index:     index,
		logger:    logger,
		ingested:  make(map[string]time.Time),
	}, nil
}

// ImagesDir returns the image root.
func (s *Store) ImagesDir() string { return s.imagesDir }

// LabelsDir returns the label root.
func (s *Store) LabelsDir() string { return s.labelsDir }

// Records returns the authoritative record repository.
func (s *Store) Records() repository.RecordRepository { return s.records }

// ImagePath returns where filename is stored.
func (s *Store) ImagePath(filename string) string {
	return filepath.Join(s.imagesDir, filename)
}

// LabelPath returns the plain-text derivative for filename.
func (s *Store) LabelPath(filename string) string {
	return filepath.Join(s.labelsDir, Stem(filename)+".txt")
}

// PutImage stores an uploaded image under its sanitized name, replacing any
// image with the same name, and returns the stored path.
func (s *Store) PutImage(filename string, data []byte) (string, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	if !IsImageName(name) {
		return "", ErrInvalidExtension
	}

	s.markIngested(name)
	path := s.ImagePath(name)
	if err := repository.WriteFileAtomic(path, data, 0644); err != nil {
		s.forgetIngested(name)
		return "", fmt.Errorf("save image %s: %w", name, err)
	}
	return path, nil
}

// HasImage reports whether filename exists in the image root.
func (s *Store) HasImage(filename string) bool {
	if ValidateName(filename) != nil {
		return false
	}
	info, err := os.Stat(s.ImagePath(filename))
	return err == nil && !info.IsDir()
}

// GetAnnotation returns the labels for filename: the structured record when
// it is present and valid, else the plain-text derivative with every entry
// marked true positive, else nothing.
func (s *Store) GetAnnotation(filename string) ([]model.Label, error) {
	if err := ValidateName(filename); err != nil {
		return nil, err
	}

	labels, ok, err := s.records.Get(filename)
	if err != nil {
		s.logger.Warning("Reading record for %s failed, falling back to labels file: %v", filename, err)
	} else if ok {
		return labels, nil
	}

	labels, err = readLabelFile(s.LabelPath(filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Label{}, nil
		}
		return nil, fmt.Errorf("read labels for %s: %w", filename, err)
	}
	return labels, nil
}

// PutAnnotation replaces the record for filename and regenerates the
// plain-text derivative from its true positives. An empty true-positive set
// still writes a zero-length file.
func (s *Store) PutAnnotation(filename string, labels []model.Label) error {
	if err := ValidateName(filename); err != nil {
		return err
	}
	if labels == nil {
		labels = []model.Label{}
	}

	if err := s.records.Put(filename, labels); err != nil {
		return fmt.Errorf("save record for %s: %w", filename, err)
	}
	if err := repository.WriteFileAtomic(s.LabelPath(filename), FormatLabels(labels), 0644); err != nil {
		return fmt.Errorf("save labels for %s: %w", filename, err)
	}

	if s.index != nil {
		if err := s.index.Put(filename, labels); err != nil {
			s.markIndexStale(filename, err)
		}
	}
	return nil
}

// Delete removes the image, its plain-text derivative and its record, and
// reports which of them existed. On error the report covers what was
// removed before the failure.
func (s *Store) Delete(filename string) (dto.RemovedFiles, error) {
	var removed dto.RemovedFiles
	if err := ValidateName(filename); err != nil {
		return removed, err
	}

	var err error
	if removed.Image, err = removeIfExists(s.ImagePath(filename)); err != nil {
		return removed, err
	}
	if removed.Labels, err = removeIfExists(s.LabelPath(filename)); err != nil {
		return removed, err
	}
	if removed.JSON, err = s.records.Delete(filename); err != nil {
		return removed, fmt.Errorf("delete record for %s: %w", filename, err)
	}

	if s.index != nil {
		if _, err := s.index.Delete(filename); err != nil {
			s.markIndexStale(filename, err)
		}
	}
	return removed, nil
}

func removeIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("remove %s: %w", filepath.Base(path), err)
}

func (s *Store) markIndexStale(filename string, err error) {
	if !s.indexStale.Swap(true) {
		s.logger.Warning("Index update for %s failed, falling back to records until reindex: %v", filename, err)
	}
}

// IndexInSync reports whether the index is configured and has taken every
// record write so far.
func (s *Store) IndexInSync() bool {
	return s.index != nil && !s.indexStale.Load()
}

// LabelsCount counts the non-blank lines of the plain-text derivative.
func (s *Store) LabelsCount(filename string) int {
	f, err := os.Open(s.LabelPath(filename))
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	return count
}

// LabeledChecker returns a predicate telling whether an image has a
// non-empty structured record. A listing-capable backend is read once; the
// index stands in for a backend that cannot list while it is in sync.
// Otherwise every call reads that image's record.
func (s *Store) LabeledChecker() (func(filename string) bool, error) {
	candidates := []repository.RecordRepository{s.records}
	if s.IndexInSync() {
		candidates = append(candidates, s.index)
	}
	for _, repo := range candidates {
		lister, ok := repo.(repository.LabeledLister)
		if !ok {
			continue
		}
		labeled, err := lister.Labeled()
		if err != nil {
			return nil, fmt.Errorf("list labeled images: %w", err)
		}
		return func(filename string) bool { return labeled[filename] }, nil
	}

	return func(filename string) bool {
		labels, ok, err := s.records.Get(filename)
		return err == nil && ok && len(labels) > 0
	}, nil
}

// ImageFile describes one image in the image root.
type ImageFile struct {
	Name    string
	ModTime time.Time
}

// ListImages returns the .jpg/.jpeg files in the image root. Files that
// vanish while listing are skipped.
func (s *Store) ListImages() ([]ImageFile, error) {
	entries, err := os.ReadDir(s.imagesDir)
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}

	images := make([]ImageFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsImageName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		images = append(images, ImageFile{Name: e.Name(), ModTime: info.ModTime()})
	}
	return images, nil
}

// ConsumeIngested reports whether filename was recently written by PutImage
// and forgets it.
func (s *Store) ConsumeIngested(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.ingested[filename]
	delete(s.ingested, filename)
	return ok && time.Since(at) < ingestMemory
}

func (s *Store) markIngested(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for name, at := range s.ingested {
		if now.Sub(at) >= ingestMemory {
			delete(s.ingested, name)
		}
	}
	s.ingested[filename] = now
}

func (s *Store) forgetIngested(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ingested, filename)
}

// FormatLabels renders the plain-text derivative: one true-positive label
// per line, in input order.
func FormatLabels(labels []model.Label) []byte {
	var buf bytes.Buffer
	for _, l := range model.TruePositives(labels) {
		buf.WriteString(l.YOLOLine())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ParseLabels reads a plain-text derivative. Malformed lines are skipped and
// every label is a true positive.
func ParseLabels(data []byte) []model.Label {
	labels := []model.Label{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 5 {
			continue
		}
		cls, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || cls < 0 {
			continue
		}
		var coords [4]float64
		valid := true
		for i, f := range fields[1:] {
			if coords[i], err = strconv.ParseFloat(f, 64); err != nil {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		labels = append(labels, model.Label{
			Class:   int(cls),
			XCenter: coords[0],
			YCenter: coords[1],
			Width:   coords[2],
			Height:  coords[3],
			IsTP:    true,
		})
	}
	return labels
}

func readLabelFile(path string) ([]model.Label, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLabels(data), nil
}
