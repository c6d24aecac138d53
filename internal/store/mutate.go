package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/amline/maktaba/core/corpus"
	"github.com/amline/maktaba/core/errors"
)

// NullableString is a tri-state update field: absent (leave the column
// untouched), explicit null (clear it), or a value.
type NullableString struct {
	Set   bool
	Valid bool
	Value string
}

// SetString builds a NullableString carrying a value.
func SetString(v string) NullableString {
	return NullableString{Set: true, Valid: true, Value: v}
}

// NullString builds a NullableString carrying an explicit null.
func NullString() NullableString {
	return NullableString{Set: true}
}

// NullableInt is the integer counterpart of NullableString.
type NullableInt struct {
	Set   bool
	Valid bool
	Value int
}

// SetInt builds a NullableInt carrying a value.
func SetInt(v int) NullableInt {
	return NullableInt{Set: true, Valid: true, Value: v}
}

// NullInt builds a NullableInt carrying an explicit null.
func NullInt() NullableInt {
	return NullableInt{Set: true}
}

// ChunkUpdate is a partial edit to a chunk's editable fields. The
// dispatcher validates enums and payload syntax before this reaches the
// store.
type ChunkUpdate struct {
	ChunkID     string
	PageNo      NullableInt
	HeadingRaw  NullableString
	HeadingNorm NullableString
	Locator     NullableString
	ChunkType   NullableString
	Text        NullableString
	SearchText  NullableString
	ContentJSON NullableString
}

// Empty reports whether the update carries no recognized fields.
func (u ChunkUpdate) Empty() bool {
	return !u.PageNo.Set && !u.HeadingRaw.Set && !u.HeadingNorm.Set &&
		!u.Locator.Set && !u.ChunkType.Set && !u.Text.Set &&
		!u.SearchText.Set && !u.ContentJSON.Set
}

// ContentHash computes the stable content digest of a chunk body.
func ContentHash(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// UpdateChunk applies a partial edit to one chunk and keeps the
// full-text index entry consistent with the edited row. The row update
// and the index resync are two independent writes with last-write-wins
// semantics; `maktaba reindex` recovers from a failed resync.
func (s *Store) UpdateChunk(ctx context.Context, u ChunkUpdate) error {
	if u.Empty() {
		return errors.NewValidation("body", "no recognized fields to update")
	}

	var old struct {
		headingRaw  sql.NullString
		headingNorm sql.NullString
		text        string
		searchText  string
	}
	err := s.db.QueryRowContext(ctx, `
		SELECT heading_raw, heading_norm, text, search_text
		FROM chunks WHERE chunk_id = ?
	`, u.ChunkID).Scan(&old.headingRaw, &old.headingNorm, &old.text, &old.searchText)
	if err == sql.ErrNoRows {
		return errors.NewNotFound("chunk", u.ChunkID)
	}
	if err != nil {
		return errors.Wrap(err, "loading chunk")
	}

	// Derive the dependent projections unless the caller overrides them.
	if u.HeadingRaw.Set && !u.HeadingNorm.Set {
		if u.HeadingRaw.Valid {
			u.HeadingNorm = SetString(corpus.NormalizeHeading(u.HeadingRaw.Value))
		} else {
			u.HeadingNorm = NullString()
		}
	}
	if u.Text.Set && !u.SearchText.Set {
		u.SearchText = SetString(corpus.NormalizeSearchText(u.Text.Value))
	}
	// search_text is NOT NULL; an explicit null clears it to empty, the
	// same way a null body clears text.
	if u.SearchText.Set && !u.SearchText.Valid {
		u.SearchText = SetString("")
	}

	var sets []string
	var binds []any
	setString := func(col string, f NullableString) {
		if !f.Set {
			return
		}
		sets = append(sets, col+" = ?")
		if f.Valid {
			binds = append(binds, f.Value)
		} else {
			binds = append(binds, nil)
		}
	}
	if u.PageNo.Set {
		sets = append(sets, "page_no = ?")
		if u.PageNo.Valid {
			binds = append(binds, u.PageNo.Value)
		} else {
			binds = append(binds, nil)
		}
	}
	setString("heading_raw", u.HeadingRaw)
	setString("heading_norm", u.HeadingNorm)
	setString("locator", u.Locator)
	setString("chunk_type", u.ChunkType)
	if u.Text.Set {
		text := ""
		if u.Text.Valid {
			text = u.Text.Value
		}
		sets = append(sets, "text = ?", "content_hash = ?")
		binds = append(binds, text, ContentHash(text))
	}
	setString("search_text", u.SearchText)
	setString("content_json", u.ContentJSON)

	query := "UPDATE chunks SET " + strings.Join(sets, ", ") + " WHERE chunk_id = ?"
	binds = append(binds, u.ChunkID)
	if _, err := s.db.ExecContext(ctx, query, binds...); err != nil {
		return errors.Wrap(err, "updating chunk")
	}

	// The index entry is rewritten only when an indexed projection
	// actually changed. Index and row must never disagree.
	changed := false
	if u.HeadingRaw.Set && nullableDiffers(u.HeadingRaw, old.headingRaw) {
		changed = true
	}
	if u.Text.Set && (!u.Text.Valid && old.text != "" || u.Text.Valid && u.Text.Value != old.text) {
		changed = true
	}
	if u.SearchText.Set && u.SearchText.Value != old.searchText {
		changed = true
	}
	if changed {
		if err := s.resyncChunkFTS(ctx, u.ChunkID); err != nil {
			return errors.Wrap(err, "resyncing full-text index")
		}
	}
	return nil
}

func nullableDiffers(f NullableString, old sql.NullString) bool {
	if !f.Valid {
		return old.Valid
	}
	return !old.Valid || old.String != f.Value
}

// resyncChunkFTS deletes and reinserts the full-text entry for one
// chunk from its freshly committed row.
func (s *Store) resyncChunkFTS(ctx context.Context, chunkID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks_fts WHERE chunk_id = ?`, chunkID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks_fts (chunk_id, source_code, heading, body)
		SELECT c.chunk_id, s.source_code, COALESCE(c.heading_raw, ''), c.search_text
		FROM chunks c
		JOIN sources s ON s.source_id = c.source_id
		WHERE c.chunk_id = ?
	`, chunkID)
	return err
}
