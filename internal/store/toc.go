package store

import (
	"context"
	"database/sql"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// tocPdfExpr derives the physical-page index of a TOC entry from its
// locator. TOC rows carry no side payload, so the locator convention is
// the only derivation.
const tocPdfExpr = `CASE WHEN t.locator LIKE 'pdf_page:%' THEN CAST(substr(t.locator, 10) AS INTEGER) ELSE NULL END`

// ListTOC lists table-of-contents entries filtered by source, title or
// index-path substring, and page range. Each row carries a resolved
// target chunk id computed with the reader's fallback chain (first
// match wins). Index path order is authoritative document order and
// overrides numeric page order.
func (s *Store) ListTOC(ctx context.Context, f Filters) (int, []corpus.TOCRow, error) {
	var parts []string
	var binds []any
	if f.SourceCode != "" {
		parts = append(parts, "s.source_code = ?")
		binds = append(binds, f.SourceCode)
	}
	if f.Query != "" {
		parts = append(parts, "(t.title_norm LIKE ? OR t.index_path LIKE ?)")
		binds = append(binds, "%"+corpus.NormalizeHeading(f.Query)+"%", "%"+f.Query+"%")
	}
	if f.PageFrom != nil {
		parts = append(parts, "t.page_no >= ?")
		binds = append(binds, *f.PageFrom)
	}
	if f.PageTo != nil {
		parts = append(parts, "t.page_no <= ?")
		binds = append(binds, *f.PageTo)
	}
	where := whereClause(parts)

	const from = `FROM toc_entries t JOIN sources s ON s.source_id = t.source_id`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) `+from+` `+where, binds...).Scan(&total); err != nil {
		return 0, nil, errors.Wrap(err, "counting toc entries")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.toc_id, t.source_id, s.source_code, t.depth, t.index_path,
		       t.title_raw, t.title_norm, t.page_no, t.locator,
		       `+tocPdfExpr+` AS pdf_page_index
		`+from+`
		`+where+`
		ORDER BY t.index_path ASC, t.toc_id ASC
		LIMIT ? OFFSET ?
	`, append(binds, f.Limit, f.Offset)...)
	if err != nil {
		return 0, nil, errors.Wrap(err, "listing toc entries")
	}
	defer rows.Close()

	results := []corpus.TOCRow{}
	sourceIDs := []string{}
	for rows.Next() {
		var row corpus.TOCRow
		var sourceID string
		var pageNo, pdfPage sql.NullInt64
		var locator sql.NullString
		if err := rows.Scan(&row.TOCID, &sourceID, &row.SourceCode, &row.Depth,
			&row.IndexPath, &row.TitleRaw, &row.TitleNorm, &pageNo, &locator, &pdfPage); err != nil {
			return 0, nil, errors.Wrap(err, "scanning toc row")
		}
		row.PageNo = nullInt(pageNo)
		row.Locator = nullStr(locator)
		row.PDFPageIndex = nullInt(pdfPage)
		results = append(results, row)
		sourceIDs = append(sourceIDs, sourceID)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	// Resolve weak target references after the listing query completes;
	// each attempt is an independent lookup against the chunk table.
	for i := range results {
		ref, err := s.resolveTOCTarget(ctx, sourceIDs[i], &results[i])
		if err != nil {
			return 0, nil, errors.Wrap(err, "resolving toc target")
		}
		if ref != nil {
			id := ref.ChunkID
			results[i].TargetChunkID = &id
		}
	}
	return total, results, nil
}

// resolveTOCTarget resolves a TOC entry to its target page chunk:
// declared page number, exact locator match, then nearest physical
// page. First successful strategy wins.
func (s *Store) resolveTOCTarget(ctx context.Context, sourceID string, row *corpus.TOCRow) (*chunkRef, error) {
	locator := ""
	if row.Locator != nil {
		locator = *row.Locator
	}
	return firstMatch(ctx, []resolveStrategy{
		s.byPage(sourceID, row.PageNo),
		s.byLocator(sourceID, locator),
		s.byPhysicalPage(sourceID, row.PDFPageIndex),
	})
}
