package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
)

// FileStore keeps the snapshot in a single JSON document on disk. Saves go
// through a temp file and rename, so a crash mid-write never leaves a
// half-written store behind.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore constructs a store backed by the given path. The file is
// created on first save; a missing file loads as an empty snapshot.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "file_store").Logger(),
	}
}

// Load reads the whole subscription mapping.
func (s *FileStore) Load() (map[string]Subscription, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Subscription{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", s.path, err)
	}

	var snapshot map[string]Subscription
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", s.path, err)
	}
	if snapshot == nil {
		snapshot = map[string]Subscription{}
	}
	return snapshot, nil
}

// Save atomically replaces the whole mapping on disk.
func (s *FileStore) Save(snapshot map[string]Subscription) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write store temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store %s: %w", s.path, err)
	}

	s.logger.Debug().Int("subscribers", len(snapshot)).Msg("snapshot saved")
	return nil
}

var _ Store = (*FileStore)(nil)
