package api

import (
	"net/http"
	"strings"
	"testing"
)

func TestChunkUpdate(t *testing.T) {
	s := newTestServer(t, Config{})
	body := `{"chunk_id": "ch-2", "heading_raw": "Particles of Jarr", "text": "Rewritten: the genitive particles enumerated."}`
	rec, payload := doJSON(t, s.Routes(), http.MethodPost, "/api/books/chunk", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if payload["ok"] != true || payload["saved"] != true {
		t.Errorf("envelope = %v", payload)
	}
	chunk := payload["chunk"].(map[string]any)
	if chunk["chunk_id"] != "ch-2" {
		t.Errorf("chunk_id = %v", chunk["chunk_id"])
	}
	if !strings.Contains(chunk["text"].(string), "Rewritten") {
		t.Errorf("edit not reflected in reader view: %v", chunk["text"])
	}

	// The edited token is immediately searchable.
	rec, payload = doJSON(t, s.Routes(), http.MethodGet, "/api/books/search?mode=chunks&q=enumerated", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	if payload["total"].(float64) != 1 {
		t.Errorf("edited token not indexed: total = %v", payload["total"])
	}
}

func TestChunkUpdateExplicitNull(t *testing.T) {
	s := newTestServer(t, Config{})
	rec, payload := doJSON(t, s.Routes(), http.MethodPost, "/api/books/chunk",
		`{"chunk_id": "ch-2", "heading_raw": null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	chunk := payload["chunk"].(map[string]any)
	if chunk["heading_raw"] != nil {
		t.Errorf("heading_raw = %v, want null", chunk["heading_raw"])
	}
}

func TestChunkUpdateValidation(t *testing.T) {
	s := newTestServer(t, Config{})
	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing chunk_id", `{"text": "x"}`, http.StatusBadRequest},
		{"no recognized fields", `{"chunk_id": "ch-2"}`, http.StatusBadRequest},
		{"bad chunk_type", `{"chunk_id": "ch-2", "chunk_type": "poetry"}`, http.StatusBadRequest},
		{"bad page_no", `{"chunk_id": "ch-2", "page_no": "five"}`, http.StatusBadRequest},
		{"content_json not an object", `{"chunk_id": "ch-2", "content_json": [1,2]}`, http.StatusBadRequest},
		{"unknown chunk", `{"chunk_id": "ch-404", "text": "x"}`, http.StatusNotFound},
		{"malformed body", `{"chunk_id":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := doJSON(t, s.Routes(), http.MethodPost, "/api/books/chunk", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestChunkUpdateContentJSON(t *testing.T) {
	s := newTestServer(t, Config{})
	rec, _ := doJSON(t, s.Routes(), http.MethodPost, "/api/books/chunk",
		`{"chunk_id": "ch-3", "content_json": {"chunk_scope": "page", "order_index": 2}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChunkUpdateMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, Config{})
	rec, _ := doJSON(t, s.Routes(), http.MethodGet, "/api/books/chunk", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
