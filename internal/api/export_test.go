package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amline/maktaba/internal/store"
)

func TestExportEndpoint(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/api/books/export?source_code=NAHW", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-xz" {
		t.Errorf("Content-Type = %q", ct)
	}

	snap, err := store.ReadSnapshot(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decoding snapshot stream: %v", err)
	}
	if snap.Source.SourceCode != "NAHW" {
		t.Errorf("source = %q", snap.Source.SourceCode)
	}
	if len(snap.Chunks) != 3 {
		t.Errorf("chunks = %d, want 3", len(snap.Chunks))
	}
}

func TestExportValidation(t *testing.T) {
	s := newTestServer(t, Config{})

	rec, _ := doJSON(t, s.Routes(), http.MethodGet, "/api/books/export", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing source_code: status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, s.Routes(), http.MethodGet, "/api/books/export?source_code=NOPE", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown source: status = %d, want 404", rec.Code)
	}
}
