package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// LocalStore writes artifacts under a root directory on the local filesystem.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if missing.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &StorageError{Key: root, Err: err}
	}
	return &LocalStore{root: root}, nil
}

// Put writes the whole file, creating parent directories as needed. The
// content type is implied by the file extension locally.
func (s *LocalStore) Put(_ context.Context, key string, body []byte, _ string) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StorageError{Key: key, Err: err}
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return &StorageError{Key: key, Err: err}
	}
	log.Debug().Str("path", path).Int("bytes", len(body)).Msg("wrote artifact")
	return nil
}

// TextURI returns the local extracted-text directory for a document.
func (s *LocalStore) TextURI(docID string) string {
	return filepath.Join(s.root, docID, "extracted_text")
}

// Root exposes the base directory (used by status checks).
func (s *LocalStore) Root() string { return s.root }
