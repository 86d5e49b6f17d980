package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"finrag/internal/domain"
)

// FileStore persists serialized index bytes in a single file, written
// atomically via a temp file and rename so a crash mid-write never
// leaves a torn index on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) LoadBytes(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	return data, nil
}

func (s *FileStore) SaveBytes(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return &domain.PersistenceError{Key: s.path, Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &domain.PersistenceError{Key: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return &domain.PersistenceError{Key: s.path, Err: err}
	}
	return nil
}
