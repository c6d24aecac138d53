package store

import (
	"context"
	"database/sql"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// ListPages lists page-scoped chunks filtered by source, heading
// substring, and page range, ordered by (page, chunk id). This mode
// allows bulk limits so clients can build local page indexes.
func (s *Store) ListPages(ctx context.Context, f Filters) (int, []corpus.PageRow, error) {
	parts := []string{scopeExpr + ` = 'page'`}
	var binds []any
	if f.SourceCode != "" {
		parts = append(parts, "s.source_code = ?")
		binds = append(binds, f.SourceCode)
	}
	if f.HeadingNorm != "" {
		parts = append(parts, "c.heading_norm LIKE ?")
		binds = append(binds, "%"+corpus.NormalizeHeading(f.HeadingNorm)+"%")
	}
	if f.PageFrom != nil {
		parts = append(parts, "c.page_no >= ?")
		binds = append(binds, *f.PageFrom)
	}
	if f.PageTo != nil {
		parts = append(parts, "c.page_no <= ?")
		binds = append(binds, *f.PageTo)
	}
	where := whereClause(parts)

	const from = `FROM chunks c JOIN sources s ON s.source_id = c.source_id`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) `+from+` `+where, binds...).Scan(&total); err != nil {
		return 0, nil, errors.Wrap(err, "counting pages")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_id, s.source_code, c.page_no, c.heading_raw, c.heading_norm, c.locator
		`+from+`
		`+where+`
		ORDER BY c.page_no ASC, c.chunk_id ASC
		LIMIT ? OFFSET ?
	`, append(binds, f.Limit, f.Offset)...)
	if err != nil {
		return 0, nil, errors.Wrap(err, "listing pages")
	}
	defer rows.Close()

	results := []corpus.PageRow{}
	for rows.Next() {
		var row corpus.PageRow
		var pageNo sql.NullInt64
		var headingRaw, headingNorm, locator sql.NullString
		if err := rows.Scan(&row.ChunkID, &row.SourceCode, &pageNo,
			&headingRaw, &headingNorm, &locator); err != nil {
			return 0, nil, errors.Wrap(err, "scanning page row")
		}
		row.PageNo = nullInt(pageNo)
		row.HeadingRaw = nullStr(headingRaw)
		row.HeadingNorm = nullStr(headingNorm)
		row.Locator = nullStr(locator)
		results = append(results, row)
	}
	return total, results, rows.Err()
}

// SearchChunks runs the full-text chunk search. With a query string,
// results are ranked by bm25 (lower first) and carry a highlighted
// snippet; without one, results follow the canonical (page, chunk id)
// order and the snippet is a text prefix.
func (s *Store) SearchChunks(ctx context.Context, f Filters) (int, []corpus.ChunkHit, error) {
	var parts []string
	var binds []any
	if f.SourceCode != "" {
		parts = append(parts, "f.source_code = ?")
		binds = append(binds, f.SourceCode)
	}
	if f.ChunkType != "" {
		parts = append(parts, "c.chunk_type = ?")
		binds = append(binds, f.ChunkType)
	}
	if f.HeadingNorm != "" {
		parts = append(parts, "c.heading_norm = ?")
		binds = append(binds, corpus.NormalizeHeading(f.HeadingNorm))
	}
	if f.PageFrom != nil {
		parts = append(parts, "c.page_no >= ?")
		binds = append(binds, *f.PageFrom)
	}
	if f.PageTo != nil {
		parts = append(parts, "c.page_no <= ?")
		binds = append(binds, *f.PageTo)
	}
	if f.Query != "" {
		parts = append(parts, "chunks_fts MATCH ?")
		binds = append(binds, f.Query)
	}
	where := whereClause(parts)

	const from = `FROM chunks_fts f JOIN chunks c ON c.chunk_id = f.chunk_id`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) `+from+` `+where, binds...).Scan(&total); err != nil {
		return 0, nil, errors.Wrap(err, "counting chunks")
	}

	hitExpr := `substr(c.text, 1, 260) AS hit, NULL AS rank`
	orderBy := `ORDER BY c.page_no ASC, c.chunk_id ASC`
	if f.Query != "" {
		hitExpr = `snippet(chunks_fts, 3, '[', ']', '…', 12) AS hit, bm25(chunks_fts) AS rank`
		orderBy = `ORDER BY rank ASC, c.page_no ASC, c.chunk_id ASC`
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			f.chunk_id,
			f.source_code,
			c.page_no,
			c.locator,
			c.heading_raw,
			c.heading_norm,
			c.chunk_type,
			`+hitExpr+`
		`+from+`
		`+where+`
		`+orderBy+`
		LIMIT ? OFFSET ?
	`, append(binds, f.Limit, f.Offset)...)
	if err != nil {
		return 0, nil, errors.Wrap(err, "searching chunks")
	}
	defer rows.Close()

	results := []corpus.ChunkHit{}
	for rows.Next() {
		var h corpus.ChunkHit
		var pageNo sql.NullInt64
		var locator, headingRaw, headingNorm, chunkType, hit sql.NullString
		var rank sql.NullFloat64
		if err := rows.Scan(&h.ChunkID, &h.SourceCode, &pageNo, &locator,
			&headingRaw, &headingNorm, &chunkType, &hit, &rank); err != nil {
			return 0, nil, errors.Wrap(err, "scanning chunk hit")
		}
		h.PageNo = nullInt(pageNo)
		h.Locator = nullStr(locator)
		h.HeadingRaw = nullStr(headingRaw)
		h.HeadingNorm = nullStr(headingNorm)
		h.ChunkType = nullStr(chunkType)
		h.Hit = nullStr(hit)
		h.Rank = nullFloat(rank)
		results = append(results, h)
	}
	return total, results, rows.Err()
}
