package store

import (
	"context"

	"github.com/amline/maktaba/core/errors"
)

// ReindexStats reports what a full-text rebuild touched.
type ReindexStats struct {
	Chunks   int `json:"chunks"`
	Evidence int `json:"evidence"`
}

// RebuildSearchIndex drops and rebuilds both full-text tables from the
// base rows. Chunk edits keep the index in sync incrementally; this is
// the recovery path for a crash between a row write and its resync, and
// the migration path after bulk imports done outside the service.
func (s *Store) RebuildSearchIndex(ctx context.Context) (ReindexStats, error) {
	var stats ReindexStats

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks_fts`); err != nil {
		return stats, errors.Wrap(err, "clearing chunk index")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks_fts (chunk_id, source_code, heading, body)
		SELECT c.chunk_id, s.source_code, COALESCE(c.heading_raw, ''), c.search_text
		FROM chunks c
		JOIN sources s ON s.source_id = c.source_id
	`)
	if err != nil {
		return stats, errors.Wrap(err, "rebuilding chunk index")
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.Chunks = int(n)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM evidence_fts`); err != nil {
		return stats, errors.Wrap(err, "clearing evidence index")
	}
	res, err = s.db.ExecContext(ctx, `
		INSERT INTO evidence_fts (evidence_id, source_code, lexicon_id, extract_text, notes)
		SELECT e.evidence_id, s.source_code, e.lexicon_id,
		       COALESCE(e.extract_text, ''), COALESCE(e.notes, '')
		FROM lexicon_evidence e
		JOIN sources s ON s.source_id = e.source_id
	`)
	if err != nil {
		return stats, errors.Wrap(err, "rebuilding evidence index")
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.Evidence = int(n)
	}
	return stats, nil
}
