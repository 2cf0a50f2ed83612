package export

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antpi/internal/logger"
	"antpi/internal/model"
	"antpi/internal/repository"
	"antpi/internal/repository/jsonfile"
	"antpi/internal/repository/statusfile"
	"antpi/internal/service/catalog"
	"antpi/internal/service/metadata"
	"antpi/internal/service/storage"
)

type fixture struct {
	store    *storage.Store
	exporter *Exporter
}

func newFixture(t *testing.T, statusBackend bool) fixture {
	t.Helper()

	root := t.TempDir()
	log, err := logger.New(filepath.Join(root, "logs"), io.Discard, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	var (
		records     repository.RecordRepository
		recordsPath string
	)
	if statusBackend {
		repo, err := statusfile.NewRecordRepository(filepath.Join(root, "status"))
		require.NoError(t, err)
		records, recordsPath = repo, repo.Path()
	} else {
		repo, err := jsonfile.NewRecordRepository(filepath.Join(root, "jsons"))
		require.NoError(t, err)
		records, recordsPath = repo, repo.Dir()
	}

	store, err := storage.NewStore(filepath.Join(root, "images"), filepath.Join(root, "labels"), records, nil, log)
	require.NoError(t, err)
	cat := catalog.NewCatalog(store, metadata.NewExtractor(false), time.UTC, log)

	return fixture{store: store, exporter: NewExporter(store, cat, recordsPath, log)}
}

func (f fixture) put(t *testing.T, name string, labels ...model.Label) {
	t.Helper()
	_, err := f.store.PutImage(name, []byte("jpeg "+name))
	require.NoError(t, err)
	if labels != nil {
		require.NoError(t, f.store.PutAnnotation(name, labels))
	}
}

func archiveNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func archiveFile(t *testing.T, data []byte, name string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	rc, err := zr.Open(name)
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	return content
}

var box = model.Label{Class: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2, IsTP: true}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "dataset_2024-01-01_to_2024-01-31.zip", r.ArchiveName())

	_, err = ParseDateRange("2024-01-01", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDateRange("01/01/2024", "2024-01-02")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDateRange("2024-02-30", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateRange_Contains(t *testing.T) {
	r := DateRange{From: "2024-01-01", To: "2024-01-01"}

	assert.True(t, r.Contains(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
}

func TestExporter_ExportAll(t *testing.T) {
	f := newFixture(t, false)
	f.put(t, "2024-01-01T00-00-00+0000_a.jpg", box)
	f.put(t, "2024-01-02T00-00-00+0000_b.jpg")

	data, err := f.exporter.ExportAll()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"images/2024-01-01T00-00-00+0000_a.jpg",
		"images/2024-01-02T00-00-00+0000_b.jpg",
		"jsons/2024-01-01T00-00-00+0000_a.json",
		"labels/2024-01-01T00-00-00+0000_a.txt",
	}, archiveNames(t, data))
	assert.Equal(t, "0 0.500000 0.500000 0.200000 0.200000\n",
		string(archiveFile(t, data, "labels/2024-01-01T00-00-00+0000_a.txt")))
	assert.Equal(t, "jpeg 2024-01-02T00-00-00+0000_b.jpg",
		string(archiveFile(t, data, "images/2024-01-02T00-00-00+0000_b.jpg")))
}

func TestExporter_ExportAllStatusBackend(t *testing.T) {
	f := newFixture(t, true)
	f.put(t, "a.jpg", box)

	data, err := f.exporter.ExportAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"images/a.jpg", "jsons/status.json", "labels/a.txt"}, archiveNames(t, data))
}

func TestExporter_ExportAllEmpty(t *testing.T) {
	f := newFixture(t, true)

	data, err := f.exporter.ExportAll()
	require.NoError(t, err)
	assert.Empty(t, archiveNames(t, data))
}

func TestExporter_ExportRange(t *testing.T) {
	f := newFixture(t, false)
	f.put(t, "2024-01-01T08-00-00+0000_a.jpg", box)
	f.put(t, "2024-01-01T23-30-00+0000_b.jpg")
	f.put(t, "2023-01-01T08-00-00+0000_lastyear.jpg", box)
	f.put(t, "2024-01-02T00-00-00+0000_next.jpg", box)

	data, count, err := f.exporter.ExportRange(DateRange{From: "2024-01-01", To: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{
		"images/2024-01-01T08-00-00+0000_a.jpg",
		"images/2024-01-01T23-30-00+0000_b.jpg",
		"labels/2024-01-01T08-00-00+0000_a.txt",
	}, archiveNames(t, data))
}

func TestExporter_ExportRangeUsesDisplayZone(t *testing.T) {
	f := newFixture(t, false)
	// 23:30 at -0500 is already the next day in UTC
	f.put(t, "2024-01-01T23-30-00-0500_late.jpg")

	_, count, err := f.exporter.ExportRange(DateRange{From: "2024-01-02", To: "2024-01-02"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, count, err = f.exporter.ExportRange(DateRange{From: "2024-01-01", To: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
