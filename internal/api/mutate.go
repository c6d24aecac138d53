package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
	"github.com/amline/maktaba/internal/store"
)

// handleChunkUpdate applies a partial chunk edit. Field semantics are
// presence-keyed: an absent field leaves the column untouched, an
// explicit null clears it. The response is the post-edit reader view.
func (s *Server) handleChunkUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}

	update, err := buildChunkUpdate(body)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	ctx := r.Context()
	if err := s.store.UpdateChunk(ctx, update); err != nil {
		respondStoreError(w, err)
		return
	}

	chunk, nav, err := s.store.ResolveReader(ctx, corpus.ReaderAnchor{ChunkID: update.ChunkID})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if chunk != nil && s.hub != nil {
		s.hub.BroadcastChunkUpdated(chunk.ChunkID, chunk.SourceCode, chunk.PageNo)
	}

	respond(w, http.StatusOK, updateEnvelope{OK: true, Saved: true, Chunk: chunk, Nav: nav})
}

// buildChunkUpdate converts the raw JSON body into a typed update,
// validating enums and the side payload before any store access.
func buildChunkUpdate(body map[string]json.RawMessage) (store.ChunkUpdate, error) {
	var u store.ChunkUpdate

	raw, ok := body["chunk_id"]
	if !ok {
		return u, errors.NewValidation("chunk_id", "required")
	}
	if err := json.Unmarshal(raw, &u.ChunkID); err != nil || u.ChunkID == "" {
		return u, errors.NewValidation("chunk_id", "must be a non-empty string")
	}

	strField := func(name string) (store.NullableString, error) {
		raw, ok := body[name]
		if !ok {
			return store.NullableString{}, nil
		}
		if isJSONNull(raw) {
			return store.NullString(), nil
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return store.NullableString{}, errors.NewValidation(name, "must be a string or null")
		}
		return store.SetString(v), nil
	}

	var err error
	if u.HeadingRaw, err = strField("heading_raw"); err != nil {
		return u, err
	}
	if u.HeadingNorm, err = strField("heading_norm"); err != nil {
		return u, err
	}
	if u.Locator, err = strField("locator"); err != nil {
		return u, err
	}
	if u.Text, err = strField("text"); err != nil {
		return u, err
	}
	if u.SearchText, err = strField("search_text"); err != nil {
		return u, err
	}

	if u.ChunkType, err = strField("chunk_type"); err != nil {
		return u, err
	}
	if u.ChunkType.Valid && !corpus.ValidChunkType(u.ChunkType.Value) {
		return u, errors.NewValidation("chunk_type", "must be one of grammar, literature, lexicon, reference, other")
	}

	if raw, ok := body["page_no"]; ok {
		if isJSONNull(raw) {
			u.PageNo = store.NullInt()
		} else {
			var n int
			if err := json.Unmarshal(raw, &n); err != nil {
				return u, errors.NewValidation("page_no", "must be an integer or null")
			}
			u.PageNo = store.SetInt(n)
		}
	}

	// The side payload is accepted as a JSON object and stored compact.
	if raw, ok := body["content_json"]; ok {
		if isJSONNull(raw) {
			u.ContentJSON = store.NullString()
		} else {
			var obj map[string]any
			if err := json.Unmarshal(raw, &obj); err != nil {
				return u, errors.NewValidation("content_json", "must be a JSON object or null")
			}
			compact, err := json.Marshal(obj)
			if err != nil {
				return u, errors.NewValidation("content_json", "must be a JSON object or null")
			}
			u.ContentJSON = store.SetString(string(compact))
		}
	}

	return u, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
