package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	l, err := New(t.TempDir(), &stdout, &stderr)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, &stdout, &stderr
}

func TestLogger_LevelsGoToTheirFiles(t *testing.T) {
	l, stdout, stderr := newTestLogger(t)

	l.Info("saved %d labels", 3)
	l.Warning("dropped entry: %s", "width: missing field")
	l.Error("write failed")

	info, err := os.ReadFile(filepath.Join(l.Dir(), InfoFile))
	require.NoError(t, err)
	assert.Contains(t, string(info), "saved 3 labels")
	assert.NotContains(t, string(info), "write failed")

	warning, err := os.ReadFile(filepath.Join(l.Dir(), WarningFile))
	require.NoError(t, err)
	assert.Contains(t, string(warning), "dropped entry")

	assert.Contains(t, stdout.String(), "saved 3 labels")
	assert.Contains(t, stderr.String(), "write failed")
	assert.Contains(t, stdout.String(), "logger_test.go")
}

func TestLogger_CleanLogs(t *testing.T) {
	l, _, _ := newTestLogger(t)

	l.Info("something")
	require.NoError(t, l.CleanLogs(InfoFile))

	info, err := os.ReadFile(filepath.Join(l.Dir(), InfoFile))
	require.NoError(t, err)
	assert.Empty(t, info)
}

func TestFileForLevel(t *testing.T) {
	name, ok := FileForLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, WarningFile, name)

	_, ok = FileForLevel("debug")
	assert.False(t, ok)
}
