package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"tmscraper/pkg/errors"
)

const tempSuffix = ".tmp"

// Manager owns the scrape output root: one subdirectory per class folder,
// each holding sequence-numbered image files.
type Manager struct {
	baseDir string
	written atomic.Int64
}

// NewManager creates the output root if needed and returns a manager for it
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeIO, err, "create output directory")
	}
	return &Manager{baseDir: baseDir}, nil
}

// BaseDir returns the output root
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// ClassDir returns the directory for a class folder, creating it when
// absent. Calling it for an existing directory is not an error.
func (m *Manager) ClassDir(folder string) (string, error) {
	dir := filepath.Join(m.baseDir, folder)
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// SaveFile streams r into dir/name and returns the number of bytes written
func (m *Manager) SaveFile(dir, name string, r io.Reader) (int64, error) {
	n, err := WriteAtomic(filepath.Join(dir, name), r)
	if err != nil {
		return n, err
	}
	m.written.Add(1)
	return n, nil
}

// WrittenCount returns how many files this manager has saved
func (m *Manager) WrittenCount() int {
	return int(m.written.Load())
}

// EnsureDir creates dir and its parents when absent
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrorTypeIO, err, fmt.Sprintf("create directory %s", dir))
	}
	return nil
}

// WriteAtomic copies r into a temporary file next to path and renames it
// into place, so readers never observe a partially written file.
func WriteAtomic(path string, r io.Reader) (int64, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	out, err := os.CreateTemp(dir, "."+base+".*"+tempSuffix)
	if err != nil {
		return 0, errors.Wrap(errors.ErrorTypeIO, err, "create temporary file")
	}
	tempFile := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, errors.Wrap(errors.ErrorTypeIO, err, fmt.Sprintf("write %s", path))
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, errors.Wrap(errors.ErrorTypeIO, closeErr, fmt.Sprintf("close %s", path))
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return n, errors.Wrap(errors.ErrorTypeIO, err, "set file mode")
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return n, errors.Wrap(errors.ErrorTypeIO, err, fmt.Sprintf("rename into %s", path))
	}
	return n, nil
}

// ListFiles returns the regular files in dir in lexical order, skipping
// hidden entries and leftover temporary files.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeIO, err, fmt.Sprintf("read directory %s", dir))
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, tempSuffix) {
			continue
		}
		files = append(files, name)
	}
	return files, nil
}
