package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmscraper/pkg/errors"
)

func TestManager(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "out")

	manager, err := NewManager(tempDir)
	require.NoError(t, err)
	assert.DirExists(t, tempDir)
	assert.Equal(t, 0, manager.WrittenCount())

	dir, err := manager.ClassDir("cat")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "cat"), dir)

	// idempotent
	_, err = manager.ClassDir("cat")
	require.NoError(t, err)

	testData := []byte("test photo data")
	n, err := manager.SaveFile(dir, "0.jpg", bytes.NewReader(testData))
	require.NoError(t, err)
	assert.Equal(t, int64(len(testData)), n)
	assert.Equal(t, 1, manager.WrittenCount())

	content, err := os.ReadFile(filepath.Join(dir, "0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, testData, content)

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.jpg"}, files)
}

func TestListFilesSkipsHiddenAndTemp(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2.png", "0.jpg", ".0.jpg.123.tmp", "1.gif", "x.tmp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.jpg", "1.gif", "2.png"}, files)
}

func TestListFilesMissingDir(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnsureDirFailsUnderFile(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := EnsureDir(filepath.Join(blocker, "child"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteAtomic(filepath.Join(dir, "a.json"), bytes.NewReader([]byte("{}")))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}
