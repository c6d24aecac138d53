package store

import (
	"context"
	"database/sql"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// SearchEvidence runs the lexicon-evidence search, scoped to a lexicon
// concept and/or source. The ranked/unranked snippet duality matches
// chunk search, with independent snippets for extract and notes.
func (s *Store) SearchEvidence(ctx context.Context, f Filters) (int, []corpus.EvidenceHit, error) {
	var parts []string
	var binds []any
	if f.SourceCode != "" {
		parts = append(parts, "ef.source_code = ?")
		binds = append(binds, f.SourceCode)
	}
	if f.LexiconID != "" {
		parts = append(parts, "e.lexicon_id = ?")
		binds = append(binds, f.LexiconID)
	}
	if f.PageFrom != nil {
		parts = append(parts, "e.page_no >= ?")
		binds = append(binds, *f.PageFrom)
	}
	if f.PageTo != nil {
		parts = append(parts, "e.page_no <= ?")
		binds = append(binds, *f.PageTo)
	}
	if f.Query != "" {
		parts = append(parts, "evidence_fts MATCH ?")
		binds = append(binds, f.Query)
	}
	where := whereClause(parts)

	const from = `FROM evidence_fts ef JOIN lexicon_evidence e ON e.evidence_id = ef.evidence_id`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) `+from+` `+where, binds...).Scan(&total); err != nil {
		return 0, nil, errors.Wrap(err, "counting evidence")
	}

	hitExpr := `substr(COALESCE(e.extract_text, ''), 1, 260) AS extract_hit,
		substr(COALESCE(e.notes, ''), 1, 260) AS notes_hit,
		NULL AS rank`
	orderBy := `ORDER BY e.page_no ASC, e.evidence_id ASC`
	if f.Query != "" {
		hitExpr = `snippet(evidence_fts, 3, '[', ']', '…', 12) AS extract_hit,
			snippet(evidence_fts, 4, '[', ']', '…', 12) AS notes_hit,
			bm25(evidence_fts) AS rank`
		orderBy = `ORDER BY rank ASC, e.page_no ASC, e.evidence_id ASC`
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			e.lexicon_id,
			e.chunk_id,
			ef.source_code,
			e.page_no,
			e.link_role,
			`+hitExpr+`
		`+from+`
		`+where+`
		`+orderBy+`
		LIMIT ? OFFSET ?
	`, append(binds, f.Limit, f.Offset)...)
	if err != nil {
		return 0, nil, errors.Wrap(err, "searching evidence")
	}
	defer rows.Close()

	results := []corpus.EvidenceHit{}
	for rows.Next() {
		var h corpus.EvidenceHit
		var chunkID, extractHit, notesHit sql.NullString
		var pageNo sql.NullInt64
		var rank sql.NullFloat64
		if err := rows.Scan(&h.LexiconID, &chunkID, &h.SourceCode, &pageNo,
			&h.LinkRole, &extractHit, &notesHit, &rank); err != nil {
			return 0, nil, errors.Wrap(err, "scanning evidence hit")
		}
		h.ChunkID = nullStr(chunkID)
		h.PageNo = nullInt(pageNo)
		h.ExtractHit = nullStr(extractHit)
		h.NotesHit = nullStr(notesHit)
		h.Rank = nullFloat(rank)
		results = append(results, h)
	}
	return total, results, rows.Err()
}

// ListLexiconEvidence lists all evidence for one lexicon concept,
// optionally restricted to a source, ordered by source code, page, and
// chunk/evidence id. The concept id is required; the dispatcher
// enforces that before this runs.
func (s *Store) ListLexiconEvidence(ctx context.Context, lexiconID, sourceCode string, limit, offset int) (int, []corpus.LexiconEvidenceRow, error) {
	parts := []string{"e.lexicon_id = ?"}
	binds := []any{lexiconID}
	if sourceCode != "" {
		parts = append(parts, "s.source_code = ?")
		binds = append(binds, sourceCode)
	}
	where := whereClause(parts)

	const from = `FROM lexicon_evidence e JOIN sources s ON s.source_id = e.source_id`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) `+from+` `+where, binds...).Scan(&total); err != nil {
		return 0, nil, errors.Wrap(err, "counting lexicon evidence")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.source_code, s.title, e.chunk_id, e.page_no, e.extract_text, e.notes
		`+from+`
		`+where+`
		ORDER BY s.source_code ASC, e.page_no ASC, COALESCE(e.chunk_id, e.evidence_id) ASC
		LIMIT ? OFFSET ?
	`, append(binds, limit, offset)...)
	if err != nil {
		return 0, nil, errors.Wrap(err, "listing lexicon evidence")
	}
	defer rows.Close()

	results := []corpus.LexiconEvidenceRow{}
	for rows.Next() {
		var row corpus.LexiconEvidenceRow
		var chunkID, extract, notes sql.NullString
		var pageNo sql.NullInt64
		if err := rows.Scan(&row.SourceCode, &row.Title, &chunkID, &pageNo, &extract, &notes); err != nil {
			return 0, nil, errors.Wrap(err, "scanning lexicon evidence row")
		}
		row.ChunkID = nullStr(chunkID)
		row.PageNo = nullInt(pageNo)
		row.ExtractText = nullStr(extract)
		row.Notes = nullStr(notes)
		results = append(results, row)
	}
	return total, results, rows.Err()
}
