package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
	"github.com/amline/maktaba/internal/store"
)

// Mode is the closed set of query modes the search endpoint dispatches
// on. An unknown or missing mode string falls back to chunk search.
type Mode string

const (
	ModeSources  Mode = "sources"
	ModePages    Mode = "pages"
	ModeTOC      Mode = "toc"
	ModeIndex    Mode = "index"
	ModeChunks   Mode = "chunks"
	ModeEvidence Mode = "evidence"
	ModeLexicon  Mode = "lexicon"
	ModeReader   Mode = "reader"
)

func parseMode(s string) Mode {
	switch Mode(s) {
	case ModeSources, ModePages, ModeTOC, ModeIndex, ModeChunks,
		ModeEvidence, ModeLexicon, ModeReader:
		return Mode(s)
	default:
		return ModeChunks
	}
}

// bulkLimit reports whether a mode serves bulk client-side indexing and
// therefore allows large pages.
func bulkLimit(m Mode) bool {
	return m == ModePages || m == ModeTOC || m == ModeIndex
}

const (
	defaultLimit = 50
	maxLimit     = 200
	maxBulkLimit = 5000
)

// searchRequest is a validated, typed search request for exactly one mode.
type searchRequest struct {
	Mode    Mode
	Filters store.Filters
	Anchor  corpus.ReaderAnchor
}

// intParam parses an optional integer parameter. An absent or empty
// value means nil, not zero.
func intParam(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.NewValidation(name, "must be an integer")
	}
	return &n, nil
}

// clampedInt parses a pagination parameter, falling back to def when
// absent or unparseable, then clamping into [min, max].
func clampedInt(q url.Values, name string, def, min, max int) int {
	n, err := strconv.Atoi(q.Get(name))
	if err != nil {
		n = def
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}

// parseSearchRequest validates the raw query parameters into a typed
// request, or fails with the offending parameter named.
func parseSearchRequest(r *http.Request) (searchRequest, error) {
	q := r.URL.Query()
	req := searchRequest{Mode: parseMode(q.Get("mode"))}

	var err error
	if req.Filters.PageFrom, err = intParam(q, "page_from"); err != nil {
		return req, err
	}
	if req.Filters.PageTo, err = intParam(q, "page_to"); err != nil {
		return req, err
	}
	if req.Anchor.PageNo, err = intParam(q, "page_no"); err != nil {
		return req, err
	}

	if ct := q.Get("chunk_type"); ct != "" {
		if !corpus.ValidChunkType(ct) {
			return req, errors.NewValidation("chunk_type", "must be one of grammar, literature, lexicon, reference, other")
		}
		req.Filters.ChunkType = ct
	}

	req.Filters.Query = q.Get("q")
	req.Filters.SourceCode = q.Get("source_code")
	req.Filters.HeadingNorm = q.Get("heading_norm")
	req.Filters.LexiconID = q.Get("ar_u_lexicon")
	req.Anchor.ChunkID = q.Get("chunk_id")
	req.Anchor.TOCID = q.Get("toc_id")
	req.Anchor.SourceCode = req.Filters.SourceCode

	max := maxLimit
	if bulkLimit(req.Mode) {
		max = maxBulkLimit
	}
	req.Filters.Limit = clampedInt(q, "limit", defaultLimit, 1, max)
	req.Filters.Offset = clampedInt(q, "offset", 0, 0, int(^uint(0)>>1))

	if req.Mode == ModeLexicon && req.Filters.LexiconID == "" {
		return req, errors.NewValidation("ar_u_lexicon", "required for mode=lexicon")
	}
	return req, nil
}

func (req searchRequest) echo() filters {
	return filters{
		Query:       req.Filters.Query,
		SourceCode:  req.Filters.SourceCode,
		ChunkType:   req.Filters.ChunkType,
		HeadingNorm: req.Filters.HeadingNorm,
		LexiconID:   req.Filters.LexiconID,
		PageFrom:    req.Filters.PageFrom,
		PageTo:      req.Filters.PageTo,
	}
}

// handleSearch is the query-mode dispatcher: one validated request in,
// exactly one mode handler out.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	req, err := parseSearchRequest(r)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	ctx := r.Context()

	var (
		total   int
		results any
	)
	switch req.Mode {
	case ModeSources:
		total, results, err = s.store.SearchSources(ctx, req.Filters.Query, req.Filters.Limit, req.Filters.Offset)
	case ModePages:
		total, results, err = s.store.ListPages(ctx, req.Filters)
	case ModeTOC:
		total, results, err = s.store.ListTOC(ctx, req.Filters)
	case ModeIndex:
		total, results, err = s.store.ListIndexTerms(ctx, req.Filters)
	case ModeChunks:
		total, results, err = s.store.SearchChunks(ctx, req.Filters)
	case ModeEvidence:
		total, results, err = s.store.SearchEvidence(ctx, req.Filters)
	case ModeLexicon:
		total, results, err = s.store.ListLexiconEvidence(ctx,
			req.Filters.LexiconID, req.Filters.SourceCode, req.Filters.Limit, req.Filters.Offset)
	case ModeReader:
		chunk, nav, rerr := s.store.ResolveReader(ctx, req.Anchor)
		if rerr != nil {
			respondStoreError(w, rerr)
			return
		}
		respond(w, http.StatusOK, readerEnvelope{OK: true, Mode: string(ModeReader), Chunk: chunk, Nav: nav})
		return
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respond(w, http.StatusOK, listEnvelope{
		OK:      true,
		Mode:    string(req.Mode),
		Total:   total,
		Limit:   req.Filters.Limit,
		Offset:  req.Filters.Offset,
		Filters: req.echo(),
		Results: results,
	})
}
