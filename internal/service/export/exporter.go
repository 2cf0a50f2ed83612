package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"antpi/internal/dto"
	"antpi/internal/logger"
	"antpi/internal/service/catalog"
	"antpi/internal/service/storage"
)

// DateLayout is the calendar date format accepted by range exports.
const DateLayout = "2006-01-02"

// ArchiveName is the download name of a whole-catalog export.
const ArchiveName = "antpi_dataset.zip"

var ErrInvalidDate = errors.New("invalid date")

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	From string
	To   string
}

// ParseDateRange validates two YYYY-MM-DD dates.
func ParseDateRange(from, to string) (DateRange, error) {
	for _, v := range []string{from, to} {
		if _, err := time.Parse(DateLayout, v); err != nil {
			return DateRange{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDate, v)
		}
	}
	return DateRange{From: from, To: to}, nil
}

// Contains compares calendar dates only, in t's own location.
func (r DateRange) Contains(t time.Time) bool {
	d := t.Format(DateLayout)
	return d >= r.From && d <= r.To
}

// ArchiveName is the download name of a range export.
func (r DateRange) ArchiveName() string {
	return fmt.Sprintf("dataset_%s_to_%s.zip", r.From, r.To)
}

// Exporter assembles zip archives of the stored dataset in memory.
type Exporter struct {
	store       *storage.Store
	catalog     *catalog.Catalog
	recordsPath string
	logger      *logger.Logger
}

// NewExporter creates an Exporter. recordsPath is the structured record
// directory or the single status file; empty leaves records out.
func NewExporter(store *storage.Store, catalog *catalog.Catalog, recordsPath string, logger *logger.Logger) *Exporter {
	return &Exporter{store: store, catalog: catalog, recordsPath: recordsPath, logger: logger}
}

// ExportAll archives every image under images/, every label file under
// labels/ and the structured records under jsons/.
func (e *Exporter) ExportAll() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := addTree(zw, e.store.ImagesDir(), "images"); err != nil {
		return nil, err
	}
	if err := addTree(zw, e.store.LabelsDir(), "labels"); err != nil {
		return nil, err
	}
	if e.recordsPath != "" {
		if err := e.addRecords(zw); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) addRecords(zw *zip.Writer) error {
	info, err := os.Stat(e.recordsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat records: %w", err)
	}
	if info.IsDir() {
		return addTree(zw, e.recordsPath, "jsons")
	}
	return addFile(zw, e.recordsPath, path.Join("jsons", filepath.Base(e.recordsPath)))
}

// ExportRange archives the images whose catalog timestamp falls within r,
// plus their label files. Structured records are not included.
func (e *Exporter) ExportRange(r DateRange) ([]byte, int, error) {
	entries, err := e.catalog.List(dto.ImageFilters{})
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	count := 0
	for _, entry := range entries {
		if !r.Contains(entry.Timestamp) {
			continue
		}
		err := addFile(zw, e.store.ImagePath(entry.Filename), path.Join("images", entry.Filename))
		if errors.Is(err, os.ErrNotExist) {
			e.logger.Warning("Image %s vanished during export", entry.Filename)
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		count++

		labelPath := e.store.LabelPath(entry.Filename)
		err = addFile(zw, labelPath, path.Join("labels", filepath.Base(labelPath)))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, 0, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("finish archive: %w", err)
	}
	return buf.Bytes(), count, nil
}

// addTree adds every regular file below root, keeping relative paths.
func addTree(zw *zip.Writer, root, prefix string) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		// dot files are in-flight temp writes
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		err = addFile(zw, p, path.Join(prefix, filepath.ToSlash(rel)))
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", prefix, err)
	}
	return nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}
