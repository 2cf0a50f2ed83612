package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antpi/internal/model"
)

func TestRecordRepository_PutGetDelete(t *testing.T) {
	repo, err := NewRecordRepository(t.TempDir())
	require.NoError(t, err)

	labels := []model.Label{
		{Class: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.2, IsTP: true},
		{Class: 2, XCenter: 0.25, YCenter: 0.75, Width: 0.05, Height: 0.05, IsTP: false},
	}
	require.NoError(t, repo.Put("2024-01-01T00-00-00+0000_a.jpg", labels))
	assert.FileExists(t, filepath.Join(repo.Dir(), "2024-01-01T00-00-00+0000_a.json"))

	got, ok, err := repo.Get("2024-01-01T00-00-00+0000_a.jpg")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, labels, got)

	existed, err := repo.Delete("2024-01-01T00-00-00+0000_a.jpg")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete("2024-01-01T00-00-00+0000_a.jpg")
	require.NoError(t, err)
	assert.False(t, existed)

	_, ok, err = repo.Get("2024-01-01T00-00-00+0000_a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordRepository_EmptyRecordIsPresent(t *testing.T) {
	repo, err := NewRecordRepository(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.Put("a.jpg", nil))

	got, ok, err := repo.Get("a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestRecordRepository_CorruptRecordIsAbsent(t *testing.T) {
	repo, err := NewRecordRepository(t.TempDir())
	require.NoError(t, err)

	for name, body := range map[string]string{
		"broken.json": "{not json",
		"object.json": `{"cls": 1}`,
		"null.json":   "null",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(repo.Dir(), name), []byte(body), 0644))
	}

	for _, image := range []string{"broken.jpg", "object.jpg", "null.jpg"} {
		_, ok, err := repo.Get(image)
		require.NoError(t, err)
		assert.False(t, ok, image)
	}
}

func TestRecordRepository_MissingIsTPDefaultsTrue(t *testing.T) {
	repo, err := NewRecordRepository(t.TempDir())
	require.NoError(t, err)

	body := `[{"cls": 1, "x_center": 0.1, "y_center": 0.2, "width": 0.3, "height": 0.4}]`
	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir(), "legacy.json"), []byte(body), 0644))

	got, ok, err := repo.Get("legacy.jpeg")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsTP)
}

func TestRecordRepository_PutLeavesNoTempFiles(t *testing.T) {
	repo, err := NewRecordRepository(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Put("a.jpg", []model.Label{{Class: i, IsTP: true}}))
	}

	entries, err := os.ReadDir(repo.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}
