package api

import (
	"encoding/json"
	"net/http"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
	"github.com/amline/maktaba/internal/logging"
)

// listEnvelope is the uniform response shape of every listing mode.
type listEnvelope struct {
	OK      bool    `json:"ok"`
	Mode    string  `json:"mode"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
	Filters filters `json:"filters"`
	Results any     `json:"results"`
}

// filters echoes the applied filter set back to the client.
type filters struct {
	Query       string `json:"q,omitempty"`
	SourceCode  string `json:"source_code,omitempty"`
	ChunkType   string `json:"chunk_type,omitempty"`
	HeadingNorm string `json:"heading_norm,omitempty"`
	LexiconID   string `json:"ar_u_lexicon,omitempty"`
	PageFrom    *int   `json:"page_from,omitempty"`
	PageTo      *int   `json:"page_to,omitempty"`
}

// readerEnvelope is the reader-mode response shape. A nil chunk is a
// valid "nothing found" payload, not an error.
type readerEnvelope struct {
	OK    bool                `json:"ok"`
	Mode  string              `json:"mode"`
	Chunk *corpus.ReaderChunk `json:"chunk"`
	Nav   corpus.ReaderNav    `json:"nav"`
}

// updateEnvelope mirrors the reader shape for the mutation endpoint.
type updateEnvelope struct {
	OK    bool                `json:"ok"`
	Saved bool                `json:"saved"`
	Chunk *corpus.ReaderChunk `json:"chunk"`
	Nav   corpus.ReaderNav    `json:"nav"`
}

// errorEnvelope is the error response shape for every endpoint.
type errorEnvelope struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message, detail string) {
	respond(w, status, errorEnvelope{OK: false, Error: message, Detail: detail})
}

// respondStoreError classifies an error that escaped a handler: request
// validation and malformed full-text syntax map to 400, a missing
// target to 404, everything else to 500 with the message surfaced.
func respondStoreError(w http.ResponseWriter, err error) {
	var verr *errors.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Error(), "")
		return
	}
	if errors.IsQuerySyntax(err) {
		qerr := errors.NewQuery(err)
		respondError(w, http.StatusBadRequest, qerr.Error(), qerr.Detail)
		return
	}
	var nerr *errors.NotFoundError
	if errors.As(err, &nerr) {
		respondError(w, http.StatusNotFound, nerr.Error(), "")
		return
	}
	logging.Error("request failed", "error", err)
	respondError(w, http.StatusInternalServerError, "internal error", err.Error())
}
