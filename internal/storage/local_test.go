package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStore_PutRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	body := []byte("# Page 1 - FITZ\n\nhello world")
	key := "doc-1/extracted_text/page_0001_fitz.md"
	if err := s.Put(context.Background(), key, body, "text/markdown; charset=utf-8"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "doc-1", "extracted_text", "page_0001_fitz.md"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("read back %q, want %q", got, body)
	}
}

func TestLocalStore_TextURI(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "doc-9", "extracted_text")
	if got := s.TextURI("doc-9"); got != want {
		t.Errorf("TextURI = %q, want %q", got, want)
	}
}

func TestSelect_BackendByPrefix(t *testing.T) {
	store, err := Select(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Select local: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("expected LocalStore, got %T", store)
	}
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		prefix  string
		wantErr bool
	}{
		{uri: "s3://my-bucket", bucket: "my-bucket"},
		{uri: "s3://my-bucket/some/prefix/", bucket: "my-bucket", prefix: "some/prefix"},
		{uri: "s3://", wantErr: true},
		{uri: "/local/path", wantErr: true},
	}
	for _, tt := range tests {
		bucket, prefix, err := ParseS3URI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseS3URI(%q): expected error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseS3URI(%q): %v", tt.uri, err)
			continue
		}
		if bucket != tt.bucket || prefix != tt.prefix {
			t.Errorf("ParseS3URI(%q) = (%q,%q), want (%q,%q)", tt.uri, bucket, prefix, tt.bucket, tt.prefix)
		}
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := &StorageError{Key: "k", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("StorageError must unwrap to the cause")
	}
}
