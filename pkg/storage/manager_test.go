package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestManagerWriteFile(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir, false)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	dir := filepath.Join(tempDir, "a", "b")
	if err := manager.EnsureDir(dir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	dest := filepath.Join(dir, "photo.jpg")
	mtime := time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)
	testData := []byte("test photo data")

	if err := manager.WriteFile(dest, testData, mtime); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	content, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("Expected mtime %v, got %v", mtime, info.ModTime())
	}

	if !manager.SizeMatches(dest, int64(len(testData))) {
		t.Error("Expected size to match")
	}
	if manager.SizeMatches(dest, 1) {
		t.Error("Expected size mismatch")
	}
	if manager.SizeMatches(filepath.Join(dir, "missing"), 0) {
		t.Error("Expected missing file not to match")
	}

	files, written := manager.Stats()
	if files != 1 || written != int64(len(testData)) {
		t.Errorf("Unexpected stats: %d files, %d bytes", files, written)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestManagerFailedSaveKeepsPrevious(t *testing.T) {
	tempDir := t.TempDir()
	manager, _ := NewManager(tempDir, false)

	dest := filepath.Join(tempDir, "keep.jpg")
	if err := os.WriteFile(dest, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Save(failingReader{}, dest, time.Time{}); err == nil {
		t.Fatal("Expected save to fail")
	}

	content, _ := os.ReadFile(dest)
	if string(content) != "old" {
		t.Errorf("Expected previous file untouched, got %q", content)
	}

	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 1 {
		t.Errorf("Expected temp file to be cleaned up, got %d entries", len(entries))
	}
}

func TestManagerDryRun(t *testing.T) {
	base := filepath.Join(t.TempDir(), "never")
	manager, err := NewManager(base, true)
	if err != nil {
		t.Fatal(err)
	}

	if err := manager.EnsureDir(filepath.Join(base, "x")); err != nil {
		t.Fatal(err)
	}
	if err := manager.WriteFile(filepath.Join(base, "x", "f"), []byte("data"), time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(base); err == nil {
		t.Error("Expected dry run to create nothing")
	}
}

func TestManagerRel(t *testing.T) {
	base := t.TempDir()
	manager, _ := NewManager(base, true)
	p := filepath.Join(base, "a", "b.txt")
	if got := manager.Rel(p); got != filepath.Join("a", "b.txt") {
		t.Errorf("Unexpected rel path %q", got)
	}
}
