// Package store implements the SQLite-backed corpus store: per-mode
// query builders, the reader navigation resolver, chunk mutation with
// full-text index sync, and snapshot export.
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// Side-payload extraction fragments. The chunk scope defaults to page
// when the payload is absent or silent; the physical-page index prefers
// the payload field and falls back to the locator convention.
const (
	scopeExpr      = `COALESCE(json_extract(c.content_json, '$.chunk_scope'), 'page')`
	orderIndexExpr = `COALESCE(CAST(json_extract(c.content_json, '$.order_index') AS INTEGER), 0)`
	pdfPageExpr    = `COALESCE(
		CAST(json_extract(c.content_json, '$.pdf_page_index') AS INTEGER),
		CASE WHEN c.locator LIKE 'pdf_page:%' THEN CAST(substr(c.locator, 10) AS INTEGER) ELSE NULL END
	)`
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	source_id        TEXT PRIMARY KEY,
	source_code      TEXT NOT NULL UNIQUE,
	title            TEXT NOT NULL,
	author           TEXT,
	publication_year INTEGER,
	language         TEXT,
	type             TEXT NOT NULL DEFAULT 'book'
);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id     TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL REFERENCES sources(source_id),
	page_no      INTEGER,
	locator      TEXT,
	heading_raw  TEXT,
	heading_norm TEXT,
	chunk_type   TEXT,
	text         TEXT NOT NULL DEFAULT '',
	search_text  TEXT NOT NULL DEFAULT '',
	content_json TEXT,
	content_hash TEXT
);
CREATE INDEX IF NOT EXISTS idx_chunks_source_page ON chunks(source_id, page_no, chunk_id);
CREATE INDEX IF NOT EXISTS idx_chunks_locator ON chunks(source_id, locator);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	chunk_id UNINDEXED,
	source_code UNINDEXED,
	heading,
	body
);

CREATE TABLE IF NOT EXISTS toc_entries (
	toc_id     TEXT PRIMARY KEY,
	source_id  TEXT NOT NULL REFERENCES sources(source_id),
	depth      INTEGER NOT NULL DEFAULT 0,
	index_path TEXT NOT NULL,
	title_raw  TEXT NOT NULL,
	title_norm TEXT NOT NULL,
	page_no    INTEGER,
	locator    TEXT
);
CREATE INDEX IF NOT EXISTS idx_toc_source_path ON toc_entries(source_id, index_path, toc_id);

CREATE TABLE IF NOT EXISTS index_entries (
	index_id       TEXT PRIMARY KEY,
	source_id      TEXT NOT NULL REFERENCES sources(source_id),
	term_raw       TEXT NOT NULL,
	term_norm      TEXT NOT NULL,
	term_ar        TEXT,
	term_ar_guess  TEXT,
	head_chunk_id  TEXT,
	index_page_no  INTEGER,
	index_locator  TEXT,
	page_refs_json TEXT NOT NULL DEFAULT '[]',
	variants_json  TEXT
);
CREATE INDEX IF NOT EXISTS idx_index_source_term ON index_entries(source_id, term_norm, index_id);

CREATE TABLE IF NOT EXISTS lexicon_evidence (
	evidence_id  TEXT PRIMARY KEY,
	lexicon_id   TEXT NOT NULL,
	source_id    TEXT NOT NULL REFERENCES sources(source_id),
	chunk_id     TEXT,
	page_no      INTEGER,
	link_role    TEXT NOT NULL DEFAULT 'citation',
	extract_text TEXT,
	notes        TEXT
);
CREATE INDEX IF NOT EXISTS idx_evidence_lexicon ON lexicon_evidence(lexicon_id, source_id);

CREATE VIRTUAL TABLE IF NOT EXISTS evidence_fts USING fts5(
	evidence_id UNINDEXED,
	source_code UNINDEXED,
	lexicon_id UNINDEXED,
	extract_text,
	notes
);
`

// Store is the SQLite-backed corpus store. All browsing paths read
// through it; the single write path is UpdateChunk.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and if necessary initializes) the corpus database at
// path. Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.Wrap(err, "opening corpus database")
	}

	if path == ":memory:" {
		// A memory database lives on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "enabling WAL")
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "setting busy timeout")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating schema")
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// SourceCount returns the number of sources in the corpus.
func (s *Store) SourceCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&n)
	return n, err
}

// sourceRef identifies a source row.
type sourceRef struct {
	SourceID   string
	SourceCode string
	Title      string
}

// lookupSource finds a source by its code or its internal id.
func (s *Store) lookupSource(ctx context.Context, codeOrID string) (*sourceRef, error) {
	var ref sourceRef
	err := s.db.QueryRowContext(ctx, `
		SELECT source_id, source_code, title
		FROM sources
		WHERE source_code = ? OR source_id = ?
		LIMIT 1
	`, codeOrID, codeOrID).Scan(&ref.SourceID, &ref.SourceCode, &ref.Title)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// nullStr converts a sql.NullString to a *string.
func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// nullInt converts a sql.NullInt64 to a *int.
func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

// nullFloat converts a sql.NullFloat64 to a *float64.
func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

// parseMeta decodes a chunk side payload, tolerating NULL.
func parseMeta(raw sql.NullString) corpus.ChunkMeta {
	var meta corpus.ChunkMeta
	if raw.Valid && raw.String != "" {
		// A malformed payload degrades to the defaults rather than
		// failing the read path; mutation validates payloads on write.
		_ = json.Unmarshal([]byte(raw.String), &meta)
	}
	return meta
}
