package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// document is the on-disk TOML layout:
//
//	[default]
//	user_id = "..."
//	refresh_token = "..."
type document struct {
	Default *Profile `toml:"default,omitempty"`
}

// FileStore keeps the profile in a plain TOML file
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a TOML file store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the file path
func (f *FileStore) Location() string {
	return f.path
}

// Load reads the default profile
func (f *FileStore) Load() (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", f.path, err)
	}
	if doc.Default == nil {
		return &Profile{}, nil
	}
	return doc.Default, nil
}

// Save replaces the default profile
func (f *FileStore) Save(p *Profile) error {
	if err := validate(p); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := toml.Marshal(document{Default: p})
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := os.Rename(tempFile, f.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to replace profile: %w", err)
	}
	return nil
}

// Clear removes the profile file
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove profile: %w", err)
	}
	return nil
}
