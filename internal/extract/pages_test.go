package extract

import (
	"context"
	"errors"
	"testing"
)

type memStore struct {
	objects map[string]string
	types   map[string]string
	failKey string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]string{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	if key == m.failKey {
		return errors.New("backend unavailable")
	}
	m.objects[key] = string(body)
	m.types[key] = contentType
	return nil
}

func (m *memStore) TextURI(docID string) string { return "/out/" + docID + "/extracted_text" }

func TestWritePages_KeysAndBodies(t *testing.T) {
	store := newMemStore()
	pages := map[int]PageRecord{
		1:  {Text: "first page", Method: MethodFitz},
		2:  {Text: "scanned page", Method: MethodTesseract},
		12: {Method: MethodFailed, Error: "boom"},
	}

	written, err := WritePages(context.Background(), store, "doc-7", pages)
	if err != nil {
		t.Fatalf("WritePages: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("written = %v", written)
	}

	if got := store.objects["doc-7/extracted_text/page_0001_fitz.md"]; got != "# Page 1 - FITZ\n\nfirst page" {
		t.Errorf("page 1 body = %q", got)
	}
	if got := store.objects["doc-7/extracted_text/page_0002_tesseract.md"]; got != "# Page 2 - TESSERACT\n\nscanned page" {
		t.Errorf("page 2 body = %q", got)
	}
	// Failed pages still produce an artifact, header only.
	if got := store.objects["doc-7/extracted_text/page_0012_failed.md"]; got != "# Page 12 - FAILED\n\n" {
		t.Errorf("failed page body = %q", got)
	}
	if ct := store.types["doc-7/extracted_text/page_0001_fitz.md"]; ct != "text/markdown; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
}

func TestWritePages_StorageFailure(t *testing.T) {
	store := newMemStore()
	store.failKey = "doc-8/extracted_text/page_0002_fitz.md"
	pages := map[int]PageRecord{
		1: {Text: "ok", Method: MethodFitz},
		2: {Text: "bad", Method: MethodFitz},
	}

	_, err := WritePages(context.Background(), store, "doc-8", pages)
	if err == nil {
		t.Fatal("expected storage failure to surface")
	}
}
