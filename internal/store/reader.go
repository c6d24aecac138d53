package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// storedChunk is a fully loaded chunk row with its source attached.
type storedChunk struct {
	ChunkID     string
	SourceID    string
	SourceCode  string
	SourceTitle string
	PageNo      *int
	Locator     *string
	HeadingRaw  *string
	ChunkType   *string
	Text        string
	Meta        corpus.ChunkMeta
}

const chunkSelect = `
	SELECT c.chunk_id, c.source_id, s.source_code, s.title,
	       c.page_no, c.locator, c.heading_raw, c.chunk_type, c.text, c.content_json
	FROM chunks c
	JOIN sources s ON s.source_id = c.source_id
`

func scanStoredChunk(row *sql.Row) (*storedChunk, error) {
	var ch storedChunk
	var pageNo sql.NullInt64
	var locator, headingRaw, chunkType, contentJSON sql.NullString
	err := row.Scan(&ch.ChunkID, &ch.SourceID, &ch.SourceCode, &ch.SourceTitle,
		&pageNo, &locator, &headingRaw, &chunkType, &ch.Text, &contentJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ch.PageNo = nullInt(pageNo)
	ch.Locator = nullStr(locator)
	ch.HeadingRaw = nullStr(headingRaw)
	ch.ChunkType = nullStr(chunkType)
	ch.Meta = parseMeta(contentJSON)
	return &ch, nil
}

// getChunk loads a chunk by id, or nil when it does not exist.
func (s *Store) getChunk(ctx context.Context, chunkID string) (*storedChunk, error) {
	return scanStoredChunk(s.db.QueryRowContext(ctx,
		chunkSelect+` WHERE c.chunk_id = ? LIMIT 1`, chunkID))
}

// firstChunkOnPage loads the first page-scoped chunk of a page in
// canonical (order index, chunk id) order.
func (s *Store) firstChunkOnPage(ctx context.Context, sourceID string, pageNo int) (*storedChunk, error) {
	return scanStoredChunk(s.db.QueryRowContext(ctx,
		chunkSelect+`
		WHERE c.source_id = ? AND c.page_no = ? AND `+scopeExpr+` = 'page'
		ORDER BY `+orderIndexExpr+` ASC, c.chunk_id ASC
		LIMIT 1`, sourceID, pageNo))
}

// ResolveReader resolves a reader anchor to a renderable content block
// and a stateless prev/next cursor pair. An unresolvable anchor yields
// a nil chunk and empty nav, which is a valid "nothing found" result,
// not an error.
func (s *Store) ResolveReader(ctx context.Context, anchor corpus.ReaderAnchor) (*corpus.ReaderChunk, corpus.ReaderNav, error) {
	if anchor.TOCID != "" {
		return s.resolveTOCView(ctx, anchor.TOCID)
	}

	var ch *storedChunk
	var err error
	switch {
	case anchor.ChunkID != "":
		ch, err = s.getChunk(ctx, anchor.ChunkID)
	case anchor.SourceCode != "" && anchor.PageNo != nil:
		var src *sourceRef
		src, err = s.lookupSource(ctx, anchor.SourceCode)
		if err == nil && src != nil {
			ch, err = s.firstChunkOnPage(ctx, src.SourceID, *anchor.PageNo)
		}
	}
	if err != nil {
		return nil, corpus.ReaderNav{}, errors.Wrap(err, "resolving reader anchor")
	}
	if ch == nil {
		return nil, corpus.ReaderNav{}, nil
	}

	// A chunk that is itself a navigation handle re-resolves to the
	// concrete page chunk it points at; when every strategy fails the
	// handle is served as-is.
	if scope := ch.Meta.Scope(); scope == corpus.ScopeTOC || scope == corpus.ScopeTerm {
		locator := ""
		if ch.Locator != nil {
			locator = *ch.Locator
		}
		ref, err := firstMatch(ctx, []resolveStrategy{
			s.byParent(ch.SourceID, ch.Meta.ParentChunkID),
			s.byLocator(ch.SourceID, locator),
			s.byPhysicalPage(ch.SourceID, physicalPageOf(ch.Locator)),
			s.byPage(ch.SourceID, ch.PageNo),
		})
		if err != nil {
			return nil, corpus.ReaderNav{}, errors.Wrap(err, "resolving navigation handle")
		}
		if ref != nil && ref.ChunkID != ch.ChunkID {
			resolved, err := s.getChunk(ctx, ref.ChunkID)
			if err != nil {
				return nil, corpus.ReaderNav{}, errors.Wrap(err, "loading resolved chunk")
			}
			if resolved != nil {
				ch = resolved
			}
		}
	}

	nav, err := s.pageNeighbors(ctx, ch)
	if err != nil {
		return nil, corpus.ReaderNav{}, errors.Wrap(err, "computing neighbors")
	}

	return &corpus.ReaderChunk{
		ChunkID:     ch.ChunkID,
		PageNo:      ch.PageNo,
		HeadingRaw:  ch.HeadingRaw,
		Locator:     ch.Locator,
		ChunkType:   ch.ChunkType,
		Text:        ch.Text,
		SourceCode:  ch.SourceCode,
		SourceTitle: ch.SourceTitle,
		ReaderScope: corpus.ReaderScopePage,
		TOCID:       nil,
	}, nav, nil
}

// pageNeighbors computes the prev/next cursors over the canonical
// (page_no, chunk_id) order of page-scoped chunks within the source. A
// chunk without a page number has no position in that order and gets
// empty cursors.
func (s *Store) pageNeighbors(ctx context.Context, ch *storedChunk) (corpus.ReaderNav, error) {
	var nav corpus.ReaderNav
	if ch.PageNo == nil {
		return nav, nil
	}
	page := *ch.PageNo

	prev, err := scanRef(s.db.QueryRowContext(ctx, `
		SELECT c.chunk_id, c.page_no
		FROM chunks c
		WHERE c.source_id = ? AND `+scopeExpr+` = 'page' AND c.page_no IS NOT NULL
		  AND (c.page_no < ? OR (c.page_no = ? AND c.chunk_id < ?))
		ORDER BY c.page_no DESC, c.chunk_id DESC
		LIMIT 1
	`, ch.SourceID, page, page, ch.ChunkID))
	if err != nil {
		return nav, err
	}
	next, err := scanRef(s.db.QueryRowContext(ctx, `
		SELECT c.chunk_id, c.page_no
		FROM chunks c
		WHERE c.source_id = ? AND `+scopeExpr+` = 'page' AND c.page_no IS NOT NULL
		  AND (c.page_no > ? OR (c.page_no = ? AND c.chunk_id > ?))
		ORDER BY c.page_no ASC, c.chunk_id ASC
		LIMIT 1
	`, ch.SourceID, page, page, ch.ChunkID))
	if err != nil {
		return nav, err
	}

	if prev != nil {
		id := prev.ChunkID
		nav.PrevChunkID = &id
		nav.PrevPageNo = prev.PageNo
	}
	if next != nil {
		id := next.ChunkID
		nav.NextChunkID = &id
		nav.NextPageNo = next.PageNo
	}
	return nav, nil
}

// tocEntry is a loaded table-of-contents row with its source attached.
type tocEntry struct {
	TOCID       string
	SourceID    string
	SourceCode  string
	SourceTitle string
	IndexPath   string
	TitleRaw    string
	PageNo      *int
	Locator     *string
}

func scanTOCEntry(row *sql.Row) (*tocEntry, error) {
	var e tocEntry
	var pageNo sql.NullInt64
	var locator sql.NullString
	err := row.Scan(&e.TOCID, &e.SourceID, &e.SourceCode, &e.SourceTitle,
		&e.IndexPath, &e.TitleRaw, &pageNo, &locator)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.PageNo = nullInt(pageNo)
	e.Locator = nullStr(locator)
	return &e, nil
}

const tocEntrySelect = `
	SELECT t.toc_id, t.source_id, s.source_code, s.title,
	       t.index_path, t.title_raw, t.page_no, t.locator
	FROM toc_entries t
	JOIN sources s ON s.source_id = t.source_id
`

// tocStartPage resolves the page a TOC entry starts on: its own page
// number, then an exact locator match, then the nearest physical page.
func (s *Store) tocStartPage(ctx context.Context, e *tocEntry) (*int, error) {
	if e.PageNo != nil {
		return e.PageNo, nil
	}
	locator := ""
	if e.Locator != nil {
		locator = *e.Locator
	}
	ref, err := firstMatch(ctx, []resolveStrategy{
		s.byLocator(e.SourceID, locator),
		s.byPhysicalPage(e.SourceID, physicalPageOf(e.Locator)),
	})
	if err != nil || ref == nil {
		return nil, err
	}
	return ref.PageNo, nil
}

// resolveTOCView builds a TOC-bounded reader view: the span of pages
// from this entry's start page up to (but excluding) the next entry's
// start page, concatenated with per-chunk page separators.
func (s *Store) resolveTOCView(ctx context.Context, tocID string) (*corpus.ReaderChunk, corpus.ReaderNav, error) {
	entry, err := scanTOCEntry(s.db.QueryRowContext(ctx,
		tocEntrySelect+` WHERE t.toc_id = ? LIMIT 1`, tocID))
	if err != nil {
		return nil, corpus.ReaderNav{}, errors.Wrap(err, "loading toc entry")
	}
	if entry == nil {
		return nil, corpus.ReaderNav{}, nil
	}

	start, err := s.tocStartPage(ctx, entry)
	if err != nil {
		return nil, corpus.ReaderNav{}, errors.Wrap(err, "resolving toc start page")
	}
	if start == nil {
		return s.unresolvedTOCView(ctx, entry)
	}

	// End page is one before the next entry's start, unbounded when
	// there is no next entry or its page cannot be resolved.
	var end *int
	next, err := scanTOCEntry(s.db.QueryRowContext(ctx,
		tocEntrySelect+`
		WHERE t.source_id = ? AND (t.index_path > ? OR (t.index_path = ? AND t.toc_id > ?))
		ORDER BY t.index_path ASC, t.toc_id ASC
		LIMIT 1`, entry.SourceID, entry.IndexPath, entry.IndexPath, entry.TOCID))
	if err != nil {
		return nil, corpus.ReaderNav{}, errors.Wrap(err, "loading next toc entry")
	}
	if next != nil {
		nextStart, err := s.tocStartPage(ctx, next)
		if err != nil {
			return nil, corpus.ReaderNav{}, errors.Wrap(err, "resolving next toc start page")
		}
		if nextStart != nil {
			e := *nextStart - 1
			end = &e
		}
	}

	body, firstChunkID, lastPage, err := s.spanBody(ctx, entry.SourceID, *start, end)
	if err != nil {
		return nil, corpus.ReaderNav{}, errors.Wrap(err, "building toc span")
	}

	chunkID := entry.TOCID
	if firstChunkID != "" {
		chunkID = firstChunkID
	}
	pageTo := end
	if pageTo == nil {
		pageTo = lastPage
	}

	nav, err := s.tocNeighborsByPage(ctx, entry, *start)
	if err != nil {
		return nil, corpus.ReaderNav{}, errors.Wrap(err, "computing toc neighbors")
	}

	tid := entry.TOCID
	return &corpus.ReaderChunk{
		ChunkID:     chunkID,
		PageNo:      start,
		PageTo:      pageTo,
		HeadingRaw:  &entry.TitleRaw,
		Locator:     entry.Locator,
		Text:        body,
		SourceCode:  entry.SourceCode,
		SourceTitle: entry.SourceTitle,
		ReaderScope: corpus.ReaderScopeTOC,
		TOCID:       &tid,
	}, nav, nil
}

// spanBody concatenates the page-scoped chunks of [start, end] (end nil
// means unbounded), each prefixed with a "Page N | heading" separator.
func (s *Store) spanBody(ctx context.Context, sourceID string, start int, end *int) (body, firstChunkID string, lastPage *int, err error) {
	query := chunkSelect + `
		WHERE c.source_id = ? AND ` + scopeExpr + ` = 'page' AND c.page_no >= ?`
	binds := []any{sourceID, start}
	if end != nil {
		query += ` AND c.page_no <= ?`
		binds = append(binds, *end)
	}
	query += ` ORDER BY c.page_no ASC, ` + orderIndexExpr + ` ASC, c.chunk_id ASC`

	rows, err := s.db.QueryContext(ctx, query, binds...)
	if err != nil {
		return "", "", nil, err
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var ch storedChunk
		var pageNo sql.NullInt64
		var locator, headingRaw, chunkType, contentJSON sql.NullString
		if err := rows.Scan(&ch.ChunkID, &ch.SourceID, &ch.SourceCode, &ch.SourceTitle,
			&pageNo, &locator, &headingRaw, &chunkType, &ch.Text, &contentJSON); err != nil {
			return "", "", nil, err
		}
		if firstChunkID == "" {
			firstChunkID = ch.ChunkID
		}
		heading := ""
		if headingRaw.Valid {
			heading = headingRaw.String
		}
		page := 0
		if pageNo.Valid {
			page = int(pageNo.Int64)
			p := page
			lastPage = &p
		}
		fmt.Fprintf(&b, "Page %d | %s\n%s\n\n", page, heading, ch.Text)
	}
	return b.String(), firstChunkID, lastPage, rows.Err()
}

// unresolvedTOCView serves a TOC entry that no strategy could place on
// a page: a synthetic pseudo-chunk with TOC-level neighbors ordered by
// id, since page order is unavailable.
func (s *Store) unresolvedTOCView(ctx context.Context, entry *tocEntry) (*corpus.ReaderChunk, corpus.ReaderNav, error) {
	var nav corpus.ReaderNav
	var prevID, nextID sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT toc_id FROM toc_entries
		WHERE source_id = ? AND toc_id < ?
		ORDER BY toc_id DESC LIMIT 1
	`, entry.SourceID, entry.TOCID).Scan(&prevID)
	if err != nil && err != sql.ErrNoRows {
		return nil, nav, errors.Wrap(err, "finding previous toc entry")
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT toc_id FROM toc_entries
		WHERE source_id = ? AND toc_id > ?
		ORDER BY toc_id ASC LIMIT 1
	`, entry.SourceID, entry.TOCID).Scan(&nextID)
	if err != nil && err != sql.ErrNoRows {
		return nil, nav, errors.Wrap(err, "finding next toc entry")
	}
	nav.PrevTOCID = nullStr(prevID)
	nav.NextTOCID = nullStr(nextID)

	tid := entry.TOCID
	body := fmt.Sprintf("%s\n\nPage not found: this table-of-contents entry has no page number, no matching locator, and no physical-page index.", entry.TitleRaw)
	return &corpus.ReaderChunk{
		ChunkID:     entry.TOCID,
		PageNo:      nil,
		HeadingRaw:  &entry.TitleRaw,
		Locator:     entry.Locator,
		Text:        body,
		SourceCode:  entry.SourceCode,
		SourceTitle: entry.SourceTitle,
		ReaderScope: corpus.ReaderScopeTOC,
		TOCID:       &tid,
	}, nav, nil
}

// tocNeighborsByPage finds the adjacent TOC entries of a resolved entry
// in (page_no, toc_id) order. Only entries with a declared page_no
// participate; an entry whose page is recoverable solely through its
// locator or physical-page index is skipped here.
func (s *Store) tocNeighborsByPage(ctx context.Context, entry *tocEntry, startPage int) (corpus.ReaderNav, error) {
	var nav corpus.ReaderNav
	var prevID, nextID sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT toc_id FROM toc_entries
		WHERE source_id = ? AND page_no IS NOT NULL AND toc_id != ?
		  AND (page_no < ? OR (page_no = ? AND toc_id < ?))
		ORDER BY page_no DESC, toc_id DESC LIMIT 1
	`, entry.SourceID, entry.TOCID, startPage, startPage, entry.TOCID).Scan(&prevID)
	if err != nil && err != sql.ErrNoRows {
		return nav, errors.Wrap(err, "finding previous toc entry")
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT toc_id FROM toc_entries
		WHERE source_id = ? AND page_no IS NOT NULL AND toc_id != ?
		  AND (page_no > ? OR (page_no = ? AND toc_id > ?))
		ORDER BY page_no ASC, toc_id ASC LIMIT 1
	`, entry.SourceID, entry.TOCID, startPage, startPage, entry.TOCID).Scan(&nextID)
	if err != nil && err != sql.ErrNoRows {
		return nav, errors.Wrap(err, "finding next toc entry")
	}

	nav.PrevTOCID = nullStr(prevID)
	nav.NextTOCID = nullStr(nextID)
	return nav, nil
}
