package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"monthcal/internal/model"
)

// FileStorage persists the collection as one JSON array in a file.
type FileStorage struct {
	path string
}

// NewFileStorage returns a FileStorage for path. The parent directory is
// created on first save.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the backing file path.
func (f *FileStorage) Path() string {
	return f.path
}

// Load reads and decodes the file. A missing file yields ErrNoData; a file
// that does not decode is returned as an error and must not be overwritten
// silently by the caller.
func (f *FileStorage) Load(_ context.Context) ([]model.Event, error) {
	if f.path == "" {
		return nil, errors.New("store: file path is empty")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}

	var events []model.Event
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&events); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", f.path, err)
	}
	if events == nil {
		// "null" on disk; treat as an empty but existing collection.
		events = []model.Event{}
	}
	return events, nil
}

// Save writes the collection atomically:
//   - ensures the parent directory exists (0700)
//   - writes to a temp file in the same directory and fsyncs it
//   - chmods it to 0600 and renames it over the target
func (f *FileStorage) Save(_ context.Context, events []model.Event) error {
	if f.path == "" {
		return errors.New("store: file path is empty")
	}
	if events == nil {
		events = []model.Event{}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode events: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".monthcal-events-*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// No-op after a successful rename.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("store: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("store: rename temp file: %w", err)
	}
	return nil
}
