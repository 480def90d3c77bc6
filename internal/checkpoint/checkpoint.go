// Package checkpoint persists the known-links superset between crawl
// sessions and journals per-visit outcomes for diagnostics.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// timeLayout is the timestamp format downstream consumers of the checkpoint
// file expect.
const timeLayout = "2006-01-02 15:04:05"

// Snapshot is the durable record handed to downstream stages. URLs are
// sorted and unique; Count always equals len(URLs).
type Snapshot struct {
	URLs        []string `json:"urls"`
	Count       int      `json:"count"`
	LastUpdated string   `json:"last_updated"`
}

// FileStore reads and writes checkpoint snapshots as JSON files.
type FileStore struct {
	dir  string
	file string
	now  func() time.Time
}

// NewFileStore creates a store writing to dir/file. The directory is created
// on first save.
func NewFileStore(dir, file string) *FileStore {
	return &FileStore{dir: dir, file: file, now: time.Now}
}

// SetClock overrides the timestamp source; tests use this.
func (s *FileStore) SetClock(now func() time.Time) {
	s.now = now
}

// Path returns the full checkpoint file path.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, s.file)
}

// Load reads the persisted URL set. A missing file means a fresh crawl and
// returns an empty slice, not an error.
func (s *FileStore) Load() ([]string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}

	return snap.URLs, nil
}

// Save writes the URL set, which must already be sorted and unique, and
// returns the file path written.
func (s *FileStore) Save(urls []string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	snap := Snapshot{
		URLs:        urls,
		Count:       len(urls),
		LastUpdated: s.now().Format(timeLayout),
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := s.Path()
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return path, nil
}

// ReadSnapshot loads the full snapshot record, used by the status command.
func (s *FileStore) ReadSnapshot() (*Snapshot, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}

	return &snap, nil
}
