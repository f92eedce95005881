package storage

import (
	"context"
	"fmt"
	"strings"
)

// ObjectStore is a write-only blob sink for extraction artifacts. Keys are
// slash-separated relative paths under the configured output root.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	// TextURI returns the logical location recorded in datalake_text_uri for
	// a document's extracted-text folder.
	TextURI(docID string) string
}

// StorageError wraps any backend failure so callers can treat local and S3
// problems uniformly.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage put %s: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Select picks the backend from the output root: s3:// activates S3,
// anything else is a local directory. The choice is fixed for the process.
func Select(ctx context.Context, outputRoot string) (ObjectStore, error) {
	if strings.HasPrefix(strings.ToLower(outputRoot), "s3://") {
		return NewS3Store(ctx, outputRoot)
	}
	return NewLocalStore(outputRoot)
}
