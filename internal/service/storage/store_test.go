package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antpi/internal/dto"
	"antpi/internal/logger"
	"antpi/internal/model"
	"antpi/internal/repository/jsonfile"
	"antpi/internal/repository/sqlite"
	"antpi/internal/repository/statusfile"
)

func newTestStore(t *testing.T) (*Store, *jsonfile.RecordRepository) {
	t.Helper()

	root := t.TempDir()
	log, err := logger.New(filepath.Join(root, "logs"), io.Discard, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	records, err := jsonfile.NewRecordRepository(filepath.Join(root, "jsons"))
	require.NoError(t, err)

	store, err := NewStore(filepath.Join(root, "images"), filepath.Join(root, "labels"), records, nil, log)
	require.NoError(t, err)
	return store, records
}

func sampleLabels() []model.Label {
	return []model.Label{
		{Class: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.25, Height: 0.125, IsTP: true},
		{Class: 3, XCenter: 0.1, YCenter: 0.9, Width: 0.05, Height: 0.05, IsTP: false},
		{Class: 1, XCenter: 0.333333, YCenter: 0.666667, Width: 0.2, Height: 0.4, IsTP: true},
	}
}

func TestStore_PutImage(t *testing.T) {
	store, _ := newTestStore(t)

	path, err := store.PutImage("2024-01-01T00-00-00+0000_a.jpg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, store.ImagePath("2024-01-01T00-00-00+0000_a.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	_, err = store.PutImage("2024-01-01T00-00-00+0000_a.jpg", []byte("newer"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), data)
}

func TestStore_PutImage_RejectsBadNames(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.PutImage("photo.png", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidExtension)

	_, err = store.PutImage("", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidFilename)

	path, err := store.PutImage("../../etc/evil.JPEG", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.ImagesDir(), "evil.JPEG"), path)
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	labels := sampleLabels()

	require.NoError(t, store.PutAnnotation("a.jpg", labels))

	got, err := store.GetAnnotation("a.jpg")
	require.NoError(t, err)
	require.Len(t, got, len(labels))
	for i := range labels {
		assert.Equal(t, labels[i].Class, got[i].Class)
		assert.InDelta(t, labels[i].XCenter, got[i].XCenter, 1e-6)
		assert.InDelta(t, labels[i].YCenter, got[i].YCenter, 1e-6)
		assert.InDelta(t, labels[i].Width, got[i].Width, 1e-6)
		assert.InDelta(t, labels[i].Height, got[i].Height, 1e-6)
		assert.Equal(t, labels[i].IsTP, got[i].IsTP)
	}
}

func TestStore_DerivativeHoldsTruePositivesOnly(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.PutAnnotation("a.jpg", sampleLabels()))

	data, err := os.ReadFile(store.LabelPath("a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "0 0.500000 0.500000 0.250000 0.125000\n1 0.333333 0.666667 0.200000 0.400000\n", string(data))
	assert.Equal(t, 2, store.LabelsCount("a.jpg"))
}

func TestStore_SaveIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.PutAnnotation("a.jpg", sampleLabels()))
	first, err := os.ReadFile(store.LabelPath("a.jpg"))
	require.NoError(t, err)

	require.NoError(t, store.PutAnnotation("a.jpg", sampleLabels()))
	second, err := os.ReadFile(store.LabelPath("a.jpg"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStore_NoTruePositivesWritesEmptyFile(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.PutAnnotation("a.jpg", []model.Label{{Class: 1, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.1}}))

	info, err := os.Stat(store.LabelPath("a.jpg"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	got, err := store.GetAnnotation("a.jpg")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].IsTP)
}

func TestStore_GetAnnotation_FallsBackToLabelFile(t *testing.T) {
	store, records := newTestStore(t)

	require.NoError(t, os.WriteFile(store.LabelPath("a.jpg"), []byte("2 0.5 0.5 0.1 0.1\n\nbad line\n0 0.25 0.25 0.5 0.5\n"), 0644))

	got, err := store.GetAnnotation("a.jpg")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Class)
	assert.True(t, got[0].IsTP)
	assert.True(t, got[1].IsTP)

	// a corrupt record is ignored in favour of the labels file
	require.NoError(t, os.WriteFile(records.Path("a.jpg"), []byte("{{{"), 0644))
	got, err = store.GetAnnotation("a.jpg")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_GetAnnotation_NothingStored(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.GetAnnotation("missing.jpg")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = store.GetAnnotation("../secret.jpg")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.PutImage("a.jpg", []byte("jpeg"))
	require.NoError(t, err)
	require.NoError(t, store.PutAnnotation("a.jpg", sampleLabels()))

	removed, err := store.Delete("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, dto.RemovedFiles{Image: true, Labels: true, JSON: true}, removed)
	assert.Equal(t, dto.DeleteSuccess, removed.Status())

	got, err := store.GetAnnotation("a.jpg")
	require.NoError(t, err)
	assert.Empty(t, got)

	removed, err = store.Delete("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, dto.DeleteNotFound, removed.Status())
}

func TestStore_Delete_Partial(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.PutImage("a.jpg", []byte("jpeg"))
	require.NoError(t, err)

	removed, err := store.Delete("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, dto.RemovedFiles{Image: true}, removed)
	assert.Equal(t, dto.DeletePartial, removed.Status())
}

func TestStore_LabeledChecker(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.PutAnnotation("labeled.jpg", sampleLabels()))
	require.NoError(t, store.PutAnnotation("empty.jpg", nil))

	isLabeled, err := store.LabeledChecker()
	require.NoError(t, err)
	assert.True(t, isLabeled("labeled.jpg"))
	assert.False(t, isLabeled("empty.jpg"))
	assert.False(t, isLabeled("never.jpg"))
}

func TestStore_IndexAndStatusBackend(t *testing.T) {
	root := t.TempDir()
	log, err := logger.New(filepath.Join(root, "logs"), io.Discard, io.Discard)
	require.NoError(t, err)
	defer log.Close()

	records, err := statusfile.NewRecordRepository(filepath.Join(root, "labels"))
	require.NoError(t, err)
	db, err := sqlite.New(filepath.Join(root, "index.db"))
	require.NoError(t, err)
	defer db.Close()
	index := sqlite.NewRecordRepository(db)

	store, err := NewStore(filepath.Join(root, "images"), filepath.Join(root, "labels"), records, index, log)
	require.NoError(t, err)

	require.NoError(t, store.PutAnnotation("a.jpg", sampleLabels()))

	indexed, ok, err := index.Get("a.jpg")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, indexed, 3)

	isLabeled, err := store.LabeledChecker()
	require.NoError(t, err)
	assert.True(t, isLabeled("a.jpg"))

	removed, err := store.Delete("a.jpg")
	require.NoError(t, err)
	assert.True(t, removed.JSON)

	_, ok, err = index.Get("a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_FailedIndexWriteStopsIndexUse(t *testing.T) {
	root := t.TempDir()
	log, err := logger.New(filepath.Join(root, "logs"), io.Discard, io.Discard)
	require.NoError(t, err)
	defer log.Close()

	records, err := jsonfile.NewRecordRepository(filepath.Join(root, "jsons"))
	require.NoError(t, err)
	db, err := sqlite.New(filepath.Join(root, "index.db"))
	require.NoError(t, err)
	index := sqlite.NewRecordRepository(db)

	store, err := NewStore(filepath.Join(root, "images"), filepath.Join(root, "labels"), records, index, log)
	require.NoError(t, err)
	assert.True(t, store.IndexInSync())

	require.NoError(t, db.Close())
	require.NoError(t, store.PutAnnotation("a.jpg", sampleLabels()))
	assert.False(t, store.IndexInSync())

	isLabeled, err := store.LabeledChecker()
	require.NoError(t, err)
	assert.True(t, isLabeled("a.jpg"))
}

func TestStore_LabeledCheckerPrefersListingBackend(t *testing.T) {
	root := t.TempDir()
	log, err := logger.New(filepath.Join(root, "logs"), io.Discard, io.Discard)
	require.NoError(t, err)
	defer log.Close()

	records, err := statusfile.NewRecordRepository(filepath.Join(root, "records"))
	require.NoError(t, err)
	require.NoError(t, records.Put("a.jpg", sampleLabels()))

	db, err := sqlite.New(filepath.Join(root, "index.db"))
	require.NoError(t, err)
	defer db.Close()

	// the index never saw a.jpg
	store, err := NewStore(filepath.Join(root, "images"), filepath.Join(root, "labels"), records, sqlite.NewRecordRepository(db), log)
	require.NoError(t, err)

	isLabeled, err := store.LabeledChecker()
	require.NoError(t, err)
	assert.True(t, isLabeled("a.jpg"))
}

func TestStore_ListImages(t *testing.T) {
	store, _ := newTestStore(t)

	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(store.ImagesDir(), name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(store.ImagesDir(), "sub.jpg"), 0755))

	images, err := store.ListImages()
	require.NoError(t, err)

	var names []string
	for _, img := range images {
		names = append(names, img.Name)
	}
	assert.ElementsMatch(t, []string{"a.jpg", "b.JPEG"}, names)
}

func TestStore_ConsumeIngested(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.PutImage("a.jpg", []byte("jpeg"))
	require.NoError(t, err)

	assert.True(t, store.ConsumeIngested("a.jpg"))
	assert.False(t, store.ConsumeIngested("a.jpg"))
	assert.False(t, store.ConsumeIngested("other.jpg"))
}

func TestStore_Thumbnail(t *testing.T) {
	store, _ := newTestStore(t)

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	_, err := store.PutImage("wide.jpg", buf.Bytes())
	require.NoError(t, err)

	thumb, err := store.Thumbnail("wide.jpg", 16)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())

	_, err = store.Thumbnail("missing.jpg", 16)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Thumbnail("../wide.jpg", 16)
	assert.ErrorIs(t, err, ErrInvalidFilename)
}
