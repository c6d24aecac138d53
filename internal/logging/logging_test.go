package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("text") != FormatText {
		t.Error("expected text format")
	}
	if ParseFormat("json") != FormatJSON {
		t.Error("expected json format")
	}
	if ParseFormat("") != FormatJSON {
		t.Error("expected json as default")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" {
		t.Error("expected empty request ID on fresh context")
	}

	ctx = WithRequestID(ctx, "req-42")
	if got := GetRequestID(ctx); got != "req-42" {
		t.Errorf("expected req-42, got %q", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen == "" {
		t.Error("expected generated request ID in context")
	}
	if got := w.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("header %q does not match context %q", got, seen)
	}
}

func TestRequestIDMiddlewarePropagates(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "upstream-7" {
		t.Errorf("expected upstream-7, got %q", seen)
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", w.Code)
	}
}

func TestResponseWriterDefaultsToOK(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hi"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
