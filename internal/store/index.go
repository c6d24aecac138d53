package store

import (
	"context"
	"database/sql"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// ListIndexTerms lists back-of-book index terms filtered by source,
// term substring (any of the raw, normalized, and native-script
// variants), and page range, ordered by normalized term then id. Each
// row carries a resolved target chunk id (first match wins).
func (s *Store) ListIndexTerms(ctx context.Context, f Filters) (int, []corpus.IndexRow, error) {
	var parts []string
	var binds []any
	if f.SourceCode != "" {
		parts = append(parts, "s.source_code = ?")
		binds = append(binds, f.SourceCode)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		parts = append(parts, `(i.term_raw LIKE ? OR i.term_norm LIKE ?
			OR COALESCE(i.term_ar, '') LIKE ? OR COALESCE(i.term_ar_guess, '') LIKE ?)`)
		binds = append(binds, like, "%"+corpus.NormalizeHeading(f.Query)+"%", like, like)
	}
	if f.PageFrom != nil {
		parts = append(parts, "i.index_page_no >= ?")
		binds = append(binds, *f.PageFrom)
	}
	if f.PageTo != nil {
		parts = append(parts, "i.index_page_no <= ?")
		binds = append(binds, *f.PageTo)
	}
	where := whereClause(parts)

	const from = `FROM index_entries i JOIN sources s ON s.source_id = i.source_id`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) `+from+` `+where, binds...).Scan(&total); err != nil {
		return 0, nil, errors.Wrap(err, "counting index terms")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.index_id, i.source_id, s.source_code, i.term_raw, i.term_norm,
		       i.term_ar, i.term_ar_guess, i.head_chunk_id,
		       i.index_page_no, i.index_locator, i.page_refs_json, i.variants_json
		`+from+`
		`+where+`
		ORDER BY i.term_norm ASC, i.index_id ASC
		LIMIT ? OFFSET ?
	`, append(binds, f.Limit, f.Offset)...)
	if err != nil {
		return 0, nil, errors.Wrap(err, "listing index terms")
	}
	defer rows.Close()

	results := []corpus.IndexRow{}
	sourceIDs := []string{}
	for rows.Next() {
		var row corpus.IndexRow
		var sourceID string
		var termAr, termArGuess, headChunk, locator, variants sql.NullString
		var pageNo sql.NullInt64
		if err := rows.Scan(&row.IndexID, &sourceID, &row.SourceCode, &row.TermRaw,
			&row.TermNorm, &termAr, &termArGuess, &headChunk, &pageNo, &locator,
			&row.PageRefsJSON, &variants); err != nil {
			return 0, nil, errors.Wrap(err, "scanning index row")
		}
		row.TermAr = nullStr(termAr)
		row.TermArGuess = nullStr(termArGuess)
		row.HeadChunkID = nullStr(headChunk)
		row.IndexPageNo = nullInt(pageNo)
		row.IndexLocator = nullStr(locator)
		row.VariantsJSON = nullStr(variants)
		results = append(results, row)
		sourceIDs = append(sourceIDs, sourceID)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	for i := range results {
		ref, err := s.resolveIndexTarget(ctx, sourceIDs[i], &results[i])
		if err != nil {
			return 0, nil, errors.Wrap(err, "resolving index target")
		}
		if ref != nil {
			id := ref.ChunkID
			results[i].TargetChunkID = &id
		}
	}
	return total, results, nil
}

// resolveIndexTarget resolves an index term to its target page chunk:
// head-chunk reference, exact locator match, nearest physical page,
// then page number. First successful strategy wins.
func (s *Store) resolveIndexTarget(ctx context.Context, sourceID string, row *corpus.IndexRow) (*chunkRef, error) {
	headChunk := ""
	if row.HeadChunkID != nil {
		headChunk = *row.HeadChunkID
	}
	locator := ""
	if row.IndexLocator != nil {
		locator = *row.IndexLocator
	}
	return firstMatch(ctx, []resolveStrategy{
		s.byParent(sourceID, headChunk),
		s.byLocator(sourceID, locator),
		s.byPhysicalPage(sourceID, physicalPageOf(row.IndexLocator)),
		s.byPage(sourceID, row.IndexPageNo),
	})
}
