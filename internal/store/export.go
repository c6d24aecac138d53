package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// Snapshot is the portable export of one source: its chunks, TOC
// entries, and index terms, with content hashes so a consumer can
// verify integrity without re-deriving them.
type Snapshot struct {
	SnapshotID string            `json:"snapshot_id"`
	CreatedAt  string            `json:"created_at"`
	Source     corpus.Source     `json:"source"`
	Chunks     []SnapshotChunk   `json:"chunks"`
	TOC        []corpus.TOCRow   `json:"toc"`
	IndexTerms []corpus.IndexRow `json:"index_terms"`
}

// SnapshotChunk is one chunk in a snapshot. ContentJSON is carried
// verbatim rather than decoded so round-tripping preserves unknown
// payload keys.
type SnapshotChunk struct {
	ChunkID     string  `json:"chunk_id"`
	PageNo      *int    `json:"page_no"`
	Locator     *string `json:"locator"`
	HeadingRaw  *string `json:"heading_raw"`
	HeadingNorm *string `json:"heading_norm"`
	ChunkType   *string `json:"chunk_type"`
	Text        string  `json:"text"`
	SearchText  string  `json:"search_text"`
	ContentJSON *string `json:"content_json"`
	ContentHash string  `json:"content_hash"`
}

// WriteSnapshot streams an xz-compressed JSON snapshot of one source to
// w. The source is addressed by code or id, like every other lookup.
func (s *Store) WriteSnapshot(ctx context.Context, source string, w io.Writer) error {
	src, err := s.loadSource(ctx, source)
	if err != nil {
		return err
	}

	snap := Snapshot{
		SnapshotID: uuid.NewString(),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Source:     *src,
	}

	if snap.Chunks, err = s.snapshotChunks(ctx, src.SourceID); err != nil {
		return err
	}
	if snap.TOC, err = s.snapshotTOC(ctx, src.SourceID, src.SourceCode); err != nil {
		return err
	}
	if snap.IndexTerms, err = s.snapshotIndexTerms(ctx, src.SourceID, src.SourceCode); err != nil {
		return err
	}

	xw, err := xz.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "opening compressed stream")
	}
	enc := json.NewEncoder(xw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	return errors.Wrap(xw.Close(), "finalizing compressed stream")
}

// ReadSnapshot decodes an xz-compressed snapshot stream.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening compressed stream")
	}
	var snap Snapshot
	if err := json.NewDecoder(xr).Decode(&snap); err != nil {
		return nil, errors.Wrap(err, "decoding snapshot")
	}
	return &snap, nil
}

func (s *Store) loadSource(ctx context.Context, codeOrID string) (*corpus.Source, error) {
	var src corpus.Source
	var author, language sql.NullString
	var year sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT source_id, source_code, title, author, publication_year, language, type
		FROM sources
		WHERE source_code = ? OR source_id = ?
		LIMIT 1
	`, codeOrID, codeOrID).Scan(&src.SourceID, &src.SourceCode, &src.Title,
		&author, &year, &language, &src.Type)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("source", codeOrID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading source")
	}
	src.Author = nullStr(author)
	src.PublicationYear = nullInt(year)
	src.Language = nullStr(language)
	return &src, nil
}

func (s *Store) snapshotChunks(ctx context.Context, sourceID string) ([]SnapshotChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_id, c.page_no, c.locator, c.heading_raw, c.heading_norm,
		       c.chunk_type, c.text, c.search_text, c.content_json, c.content_hash
		FROM chunks c
		WHERE c.source_id = ?
		ORDER BY c.page_no ASC, `+orderIndexExpr+` ASC, c.chunk_id ASC
	`, sourceID)
	if err != nil {
		return nil, errors.Wrap(err, "reading chunks")
	}
	defer rows.Close()

	out := []SnapshotChunk{}
	for rows.Next() {
		var c SnapshotChunk
		var pageNo sql.NullInt64
		var locator, headingRaw, headingNorm, chunkType, contentJSON, hash sql.NullString
		if err := rows.Scan(&c.ChunkID, &pageNo, &locator, &headingRaw, &headingNorm,
			&chunkType, &c.Text, &c.SearchText, &contentJSON, &hash); err != nil {
			return nil, errors.Wrap(err, "scanning chunk")
		}
		c.PageNo = nullInt(pageNo)
		c.Locator = nullStr(locator)
		c.HeadingRaw = nullStr(headingRaw)
		c.HeadingNorm = nullStr(headingNorm)
		c.ChunkType = nullStr(chunkType)
		c.ContentJSON = nullStr(contentJSON)
		if hash.Valid {
			c.ContentHash = hash.String
		} else {
			c.ContentHash = ContentHash(c.Text)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) snapshotTOC(ctx context.Context, sourceID, sourceCode string) ([]corpus.TOCRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT toc_id, depth, index_path, title_raw, title_norm, page_no, locator
		FROM toc_entries
		WHERE source_id = ?
		ORDER BY index_path ASC, toc_id ASC
	`, sourceID)
	if err != nil {
		return nil, errors.Wrap(err, "reading toc entries")
	}
	defer rows.Close()

	out := []corpus.TOCRow{}
	for rows.Next() {
		row := corpus.TOCRow{SourceCode: sourceCode}
		var pageNo sql.NullInt64
		var locator sql.NullString
		if err := rows.Scan(&row.TOCID, &row.Depth, &row.IndexPath, &row.TitleRaw,
			&row.TitleNorm, &pageNo, &locator); err != nil {
			return nil, errors.Wrap(err, "scanning toc entry")
		}
		row.PageNo = nullInt(pageNo)
		row.Locator = nullStr(locator)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) snapshotIndexTerms(ctx context.Context, sourceID, sourceCode string) ([]corpus.IndexRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT index_id, term_raw, term_norm, term_ar, term_ar_guess,
		       head_chunk_id, index_page_no, index_locator, page_refs_json, variants_json
		FROM index_entries
		WHERE source_id = ?
		ORDER BY term_norm ASC, index_id ASC
	`, sourceID)
	if err != nil {
		return nil, errors.Wrap(err, "reading index entries")
	}
	defer rows.Close()

	out := []corpus.IndexRow{}
	for rows.Next() {
		row := corpus.IndexRow{SourceCode: sourceCode}
		var termAr, termArGuess, headChunk, locator, variants sql.NullString
		var pageNo sql.NullInt64
		if err := rows.Scan(&row.IndexID, &row.TermRaw, &row.TermNorm, &termAr,
			&termArGuess, &headChunk, &pageNo, &locator, &row.PageRefsJSON, &variants); err != nil {
			return nil, errors.Wrap(err, "scanning index entry")
		}
		row.TermAr = nullStr(termAr)
		row.TermArGuess = nullStr(termArGuess)
		row.HeadChunkID = nullStr(headChunk)
		row.IndexPageNo = nullInt(pageNo)
		row.IndexLocator = nullStr(locator)
		row.VariantsJSON = nullStr(variants)
		out = append(out, row)
	}
	return out, rows.Err()
}
