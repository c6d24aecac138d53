package store

import (
	"context"
	"encoding/json"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// Insert helpers used by seeding tools and tests. The browsing core
// never creates rows; the authoring/ingestion path that does lives
// outside this service and writes through these.

// InsertSource stores a source row.
func (s *Store) InsertSource(ctx context.Context, src corpus.Source) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (source_id, source_code, title, author, publication_year, language, type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, src.SourceID, src.SourceCode, src.Title, ptrVal(src.Author),
		ptrIntVal(src.PublicationYear), ptrVal(src.Language), src.Type)
	return errors.Wrap(err, "inserting source")
}

// InsertChunk stores a chunk row and its full-text entry. The
// normalized projections and the content hash are derived when not
// supplied.
func (s *Store) InsertChunk(ctx context.Context, ch corpus.Chunk) error {
	headingNorm := ch.HeadingNorm
	if headingNorm == nil && ch.HeadingRaw != nil {
		n := corpus.NormalizeHeading(*ch.HeadingRaw)
		headingNorm = &n
	}
	searchText := ch.SearchText
	if searchText == "" {
		searchText = corpus.NormalizeSearchText(ch.Text)
	}
	hash := ContentHash(ch.Text)

	var contentJSON any
	if ch.Meta != (corpus.ChunkMeta{}) {
		raw, err := json.Marshal(ch.Meta)
		if err != nil {
			return errors.Wrap(err, "encoding chunk payload")
		}
		contentJSON = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (chunk_id, source_id, page_no, locator, heading_raw,
			heading_norm, chunk_type, text, search_text, content_json, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ch.ChunkID, ch.SourceID, ptrIntVal(ch.PageNo), ptrVal(ch.Locator),
		ptrVal(ch.HeadingRaw), ptrVal(headingNorm), ptrVal(ch.ChunkType),
		ch.Text, searchText, contentJSON, hash)
	if err != nil {
		return errors.Wrap(err, "inserting chunk")
	}
	return errors.Wrap(s.resyncChunkFTS(ctx, ch.ChunkID), "indexing chunk")
}

// InsertTOCEntry stores a table-of-contents row.
func (s *Store) InsertTOCEntry(ctx context.Context, sourceID string, row corpus.TOCRow) error {
	titleNorm := row.TitleNorm
	if titleNorm == "" {
		titleNorm = corpus.NormalizeHeading(row.TitleRaw)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO toc_entries (toc_id, source_id, depth, index_path, title_raw, title_norm, page_no, locator)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, row.TOCID, sourceID, row.Depth, row.IndexPath, row.TitleRaw, titleNorm,
		ptrIntVal(row.PageNo), ptrVal(row.Locator))
	return errors.Wrap(err, "inserting toc entry")
}

// InsertIndexEntry stores a back-of-book index row.
func (s *Store) InsertIndexEntry(ctx context.Context, sourceID string, row corpus.IndexRow) error {
	termNorm := row.TermNorm
	if termNorm == "" {
		termNorm = corpus.NormalizeHeading(row.TermRaw)
	}
	pageRefs := row.PageRefsJSON
	if pageRefs == "" {
		pageRefs = "[]"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_entries (index_id, source_id, term_raw, term_norm, term_ar,
			term_ar_guess, head_chunk_id, index_page_no, index_locator, page_refs_json, variants_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.IndexID, sourceID, row.TermRaw, termNorm, ptrVal(row.TermAr),
		ptrVal(row.TermArGuess), ptrVal(row.HeadChunkID), ptrIntVal(row.IndexPageNo),
		ptrVal(row.IndexLocator), pageRefs, ptrVal(row.VariantsJSON))
	return errors.Wrap(err, "inserting index entry")
}

// Evidence is a lexicon evidence row for insertion.
type Evidence struct {
	EvidenceID  string
	LexiconID   string
	SourceID    string
	ChunkID     *string
	PageNo      *int
	LinkRole    string
	ExtractText *string
	Notes       *string
}

// InsertEvidence stores a lexicon evidence row and its full-text entry.
func (s *Store) InsertEvidence(ctx context.Context, e Evidence) error {
	linkRole := e.LinkRole
	if linkRole == "" {
		linkRole = "citation"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lexicon_evidence (evidence_id, lexicon_id, source_id, chunk_id, page_no, link_role, extract_text, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.EvidenceID, e.LexiconID, e.SourceID, ptrVal(e.ChunkID),
		ptrIntVal(e.PageNo), linkRole, ptrVal(e.ExtractText), ptrVal(e.Notes))
	if err != nil {
		return errors.Wrap(err, "inserting evidence")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evidence_fts (evidence_id, source_code, lexicon_id, extract_text, notes)
		SELECT e.evidence_id, s.source_code, e.lexicon_id,
		       COALESCE(e.extract_text, ''), COALESCE(e.notes, '')
		FROM lexicon_evidence e
		JOIN sources s ON s.source_id = e.source_id
		WHERE e.evidence_id = ?
	`, e.EvidenceID)
	return errors.Wrap(err, "indexing evidence")
}

func ptrVal(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrIntVal(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
