// Package api provides the Maktaba corpus-browser REST API server.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/amline/maktaba/internal/logging"
	"github.com/amline/maktaba/internal/server"
	"github.com/amline/maktaba/internal/store"
)

// Version is the server version reported by the root and health
// endpoints; the build sets it via -ldflags.
var Version = "0.3.0"

var startTime = time.Now()

// Server wires the corpus store, the WebSocket hub, and the HTTP
// handlers together.
type Server struct {
	cfg   Config
	store *store.Store
	hub   *Hub
}

// NewServer builds a server over an open corpus store and starts the
// hub loop.
func NewServer(cfg Config, st *store.Store) *Server {
	s := &Server{cfg: cfg, store: st, hub: NewHub()}
	go s.hub.Run()
	return s
}

// Routes returns the server's route table without middleware; tests
// drive it directly.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/books/search", s.handleSearch)
	mux.HandleFunc("/api/books/chunk", s.handleChunkUpdate)
	mux.HandleFunc("/api/books/export", s.handleExport)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Handler returns the full middleware chain: logging outermost, then
// CORS, auth, security headers, and the route table.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = server.SecurityHeadersMiddleware(s.Routes())
	handler = AuthMiddleware(s.cfg.APIKey, handler)
	handler = server.CORSMiddleware(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	return logging.CombinedMiddleware(handler)
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	if s.cfg.APIKey != "" {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", true,
			"note", "API key required")
	} else {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", false,
			"note", "all requests allowed")
	}
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*)")
	}
	logging.ServerStartup("rest_api", "http", s.cfg.Port,
		"db_path", server.AbsPath(s.cfg.DBPath))

	return http.ListenAndServe(fmt.Sprintf(":%d", s.cfg.Port), s.Handler())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "endpoint not found", "")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"ok":      true,
		"name":    "Maktaba API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"GET /api/books/search",
			"POST /api/books/chunk",
			"GET /api/books/export",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.SourceCount(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"ok":      true,
		"status":  "healthy",
		"version": Version,
		"driver":  store.DriverType,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
		"sources": sources,
	})
}
