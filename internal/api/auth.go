package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/amline/maktaba/internal/logging"
)

// AuthMiddleware gates every endpoint behind the X-API-Key header when
// a key is configured. With no key configured all requests pass. The
// root and health endpoints are always public.
func AuthMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey == "" || isPublicEndpoint(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		got := r.Header.Get("X-API-Key")
		if got == "" {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "missing API key")
			respondError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "invalid API key")
			respondError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isPublicEndpoint(path string) bool {
	return path == "/" || path == "/health"
}
