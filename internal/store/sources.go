package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// Filters carries the validated parameters a mode query builder may
// consume. String fields are empty when absent; page bounds are nil
// when absent.
type Filters struct {
	Query       string
	SourceCode  string
	ChunkType   string
	HeadingNorm string
	LexiconID   string
	PageFrom    *int
	PageTo      *int
	Limit       int
	Offset      int
}

// whereClause joins filter predicates, or returns "" when there are none.
func whereClause(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(parts, " AND ")
}

// SearchSources lists sources matching an optional substring over code,
// title, and author, each with a live count of its page-scoped chunks.
// Ordered by title.
func (s *Store) SearchSources(ctx context.Context, q string, limit, offset int) (int, []corpus.SourceHit, error) {
	var parts []string
	var binds []any
	if q != "" {
		like := "%" + q + "%"
		parts = append(parts, `(s.source_code LIKE ? OR s.title LIKE ? OR COALESCE(s.author, '') LIKE ?)`)
		binds = append(binds, like, like, like)
	}
	where := whereClause(parts)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sources s `+where, binds...).Scan(&total); err != nil {
		return 0, nil, errors.Wrap(err, "counting sources")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.source_code,
			s.title,
			s.author,
			s.publication_year,
			s.language,
			s.type,
			(SELECT COUNT(*) FROM chunks c
			 WHERE c.source_id = s.source_id AND `+scopeExpr+` = 'page') AS chunk_count
		FROM sources s
		`+where+`
		ORDER BY s.title ASC
		LIMIT ? OFFSET ?
	`, append(binds, limit, offset)...)
	if err != nil {
		return 0, nil, errors.Wrap(err, "listing sources")
	}
	defer rows.Close()

	results := []corpus.SourceHit{}
	for rows.Next() {
		var hit corpus.SourceHit
		var author, language sql.NullString
		var year sql.NullInt64
		if err := rows.Scan(&hit.SourceCode, &hit.Title, &author, &year,
			&language, &hit.Type, &hit.ChunkCount); err != nil {
			return 0, nil, errors.Wrap(err, "scanning source row")
		}
		hit.Author = nullStr(author)
		hit.PublicationYear = nullInt(year)
		hit.Language = nullStr(language)
		results = append(results, hit)
	}
	return total, results, rows.Err()
}
