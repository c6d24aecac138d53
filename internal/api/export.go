package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/amline/maktaba/core/errors"
	"github.com/amline/maktaba/internal/logging"
)

// handleExport streams an xz-compressed JSON snapshot of one source.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	source := r.URL.Query().Get("source_code")
	if source == "" {
		respondStoreError(w, errors.NewValidation("source_code", "required"))
		return
	}

	w.Header().Set("Content-Type", "application/x-xz")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", source+"-"+time.Now().UTC().Format("20060102")+".json.xz"))

	if err := s.store.WriteSnapshot(r.Context(), source, w); err != nil {
		// Headers may already be on the wire; a missing source is
		// detected before the first write and still gets a clean 404.
		var nerr *errors.NotFoundError
		if errors.As(err, &nerr) {
			w.Header().Del("Content-Disposition")
			w.Header().Set("Content-Type", "application/json")
			respondError(w, http.StatusNotFound, nerr.Error(), "")
			return
		}
		logging.Error("snapshot export failed", "source", source, "error", err)
		return
	}
}
