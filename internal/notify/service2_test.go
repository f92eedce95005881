package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNotify_PostsExtractionID(t *testing.T) {
	var gotPath string
	var gotBody map[string][]int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := New(true, srv.URL, "/api/document-classification/classify", 5*time.Second)
	n.Notify(context.Background(), 42, "doc-42")

	if gotPath != "/api/document-classification/classify" {
		t.Errorf("posted to %q", gotPath)
	}
	ids := gotBody["extraction_ids"]
	if len(ids) != 1 || ids[0] != 42 {
		t.Errorf("extraction_ids = %v, want [42]", ids)
	}
}

func TestNotify_Disabled(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := New(false, srv.URL, "/x", time.Second)
	n.Notify(context.Background(), 1, "d1")
	if called {
		t.Error("disabled notifier must not call downstream")
	}
}

func TestNotify_ServerErrorIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Must not panic or block; errors are logged only.
	n := New(true, srv.URL, "/x", time.Second)
	n.Notify(context.Background(), 1, "d1")
}

func TestNotify_UnreachableHostIsSwallowed(t *testing.T) {
	n := New(true, "http://127.0.0.1:1", "/x", 200*time.Millisecond)
	n.Notify(context.Background(), 1, "d1")
}
