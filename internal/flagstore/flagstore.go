// Package flagstore persists the single process-wide feature flag.
//
// The flag lives in a small JSON file under the data directory. Reads
// default to enabled whenever the file is missing or unreadable; the gate
// additionally fails open on any returned error, so a broken store can
// never block navigation.
package flagstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const fileName = "feature_flag.json"

// DefaultEnabled is the documented default when no value has been stored.
const DefaultEnabled = true

type flagFile struct {
	Enabled bool `json:"enabled"`
}

// Store is a file-backed boolean flag store.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a Store rooted at dir and ensures the directory exists.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("flagstore: mkdir %s: %w", dir, err)
	}
	return &Store{path: filepath.Join(dir, fileName)}, nil
}

// Get reads the flag. A missing file yields the default with no error; a
// corrupt or unreadable file yields the default plus the underlying error
// so callers can log it.
func (s *Store) Get(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return DefaultEnabled, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultEnabled, nil
		}
		return DefaultEnabled, fmt.Errorf("flagstore: read: %w", err)
	}

	var f flagFile
	if err := json.Unmarshal(data, &f); err != nil {
		return DefaultEnabled, fmt.Errorf("flagstore: decode: %w", err)
	}
	return f.Enabled, nil
}

// Set persists the flag value.
func (s *Store) Set(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(flagFile{Enabled: enabled})
	if err != nil {
		return fmt.Errorf("flagstore: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("flagstore: write: %w", err)
	}
	return nil
}
