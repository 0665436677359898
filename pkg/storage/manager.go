package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"knbackup/pkg/errors"
)

// Manager handles the archive's file operations
type Manager struct {
	outputDir string
	dryRun    bool

	mu           sync.Mutex
	filesWritten int
	bytesWritten int64
}

// NewManager creates a manager rooted at outputDir, creating it unless
// dryRun is set
func NewManager(outputDir string, dryRun bool) (*Manager, error) {
	if !dryRun {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return nil, errors.General(err, "failed to create output directory %s", outputDir)
		}
	}
	return &Manager{outputDir: outputDir, dryRun: dryRun}, nil
}

// EnsureDir creates dir and its parents
func (m *Manager) EnsureDir(dir string) error {
	if m.dryRun {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.General(err, "failed to create directory %s", dir)
	}
	return nil
}

// SizeMatches reports whether path is a regular file of exactly size bytes
func (m *Manager) SizeMatches(path string, size int64) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Size() == size
}

// Save copies r into dest through a temp file in the same directory, renames
// it into place and stamps atime and mtime with modTime (skipped when zero).
// A failed save leaves any previous dest untouched.
func (m *Manager) Save(r io.Reader, dest string, modTime time.Time) (int64, error) {
	if m.dryRun {
		return 0, nil
	}

	out, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return 0, errors.General(err, "failed to create temporary file")
	}
	tempFile := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return 0, errors.General(err, "failed to write %s", dest)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return 0, errors.General(closeErr, "failed to close file")
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return 0, errors.General(err, "failed to set permissions")
	}

	if err := os.Rename(tempFile, dest); err != nil {
		os.Remove(tempFile)
		return 0, errors.General(err, "failed to rename temporary file")
	}

	if !modTime.IsZero() {
		if err := os.Chtimes(dest, modTime, modTime); err != nil {
			return n, errors.General(err, "failed to set file times on %s", dest)
		}
	}

	m.mu.Lock()
	m.filesWritten++
	m.bytesWritten += n
	m.mu.Unlock()

	return n, nil
}

// WriteFile is Save for an in-memory payload
func (m *Manager) WriteFile(dest string, data []byte, modTime time.Time) error {
	n, err := m.Save(bytes.NewReader(data), dest, modTime)
	if err != nil {
		return err
	}
	if !m.dryRun && n != int64(len(data)) {
		return errors.New(errors.ErrorTypeGeneral, "short write to %s: %d of %d bytes", dest, n, len(data))
	}
	return nil
}

// Stats returns the number of files and bytes written so far
func (m *Manager) Stats() (files int, written int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filesWritten, m.bytesWritten
}

// Rel returns path relative to the archive root for display
func (m *Manager) Rel(path string) string {
	rel, err := filepath.Rel(m.outputDir, path)
	if err != nil {
		return path
	}
	return rel
}
