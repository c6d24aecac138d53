package store

import (
	"context"
	"database/sql"

	"github.com/amline/maktaba/core/corpus"
)

// chunkRef is a resolved weak reference to a page-scoped chunk.
type chunkRef struct {
	ChunkID string
	PageNo  *int
}

// resolveStrategy is one attempt at resolving a weak chunk reference.
// Strategies are tried in priority order; the first non-nil match wins
// and later candidates are never compared against it.
type resolveStrategy func(ctx context.Context) (*chunkRef, error)

// firstMatch runs strategies in order and returns the first hit.
func firstMatch(ctx context.Context, strategies []resolveStrategy) (*chunkRef, error) {
	for _, strat := range strategies {
		ref, err := strat(ctx)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			return ref, nil
		}
	}
	return nil, nil
}

// scanRef scans a (chunk_id, page_no) row, mapping no-rows to nil.
func scanRef(row *sql.Row) (*chunkRef, error) {
	var ref chunkRef
	var pageNo sql.NullInt64
	err := row.Scan(&ref.ChunkID, &pageNo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ref.PageNo = nullInt(pageNo)
	return &ref, nil
}

// byParent resolves through a declared parent-chunk back-reference,
// accepted only when the parent is itself page-scoped.
func (s *Store) byParent(sourceID, parentChunkID string) resolveStrategy {
	return func(ctx context.Context) (*chunkRef, error) {
		if parentChunkID == "" {
			return nil, nil
		}
		return scanRef(s.db.QueryRowContext(ctx, `
			SELECT c.chunk_id, c.page_no
			FROM chunks c
			WHERE c.chunk_id = ? AND c.source_id = ? AND `+scopeExpr+` = 'page'
			LIMIT 1
		`, parentChunkID, sourceID))
	}
}

// byLocator resolves to a page-scoped chunk in the same source whose
// locator exactly equals the given locator.
func (s *Store) byLocator(sourceID, locator string) resolveStrategy {
	return func(ctx context.Context) (*chunkRef, error) {
		if locator == "" {
			return nil, nil
		}
		return scanRef(s.db.QueryRowContext(ctx, `
			SELECT c.chunk_id, c.page_no
			FROM chunks c
			WHERE c.source_id = ? AND c.locator = ? AND `+scopeExpr+` = 'page'
			ORDER BY c.page_no ASC, c.chunk_id ASC
			LIMIT 1
		`, sourceID, locator))
	}
}

// byPhysicalPage resolves to the page-scoped chunk whose physical-page
// index is numerically closest to pdfIndex. Ties break toward the lower
// page number, then the lower chunk id; chunks without a page number
// lose all ties.
func (s *Store) byPhysicalPage(sourceID string, pdfIndex *int) resolveStrategy {
	return func(ctx context.Context) (*chunkRef, error) {
		if pdfIndex == nil {
			return nil, nil
		}
		return scanRef(s.db.QueryRowContext(ctx, `
			SELECT c.chunk_id, c.page_no
			FROM chunks c
			WHERE c.source_id = ? AND `+scopeExpr+` = 'page'
			  AND `+pdfPageExpr+` IS NOT NULL
			ORDER BY ABS(`+pdfPageExpr+` - ?) ASC,
			         (c.page_no IS NULL) ASC, c.page_no ASC, c.chunk_id ASC
			LIMIT 1
		`, sourceID, *pdfIndex))
	}
}

// byPage resolves to the first page-scoped chunk on the given page, in
// canonical (order index, chunk id) order.
func (s *Store) byPage(sourceID string, pageNo *int) resolveStrategy {
	return func(ctx context.Context) (*chunkRef, error) {
		if pageNo == nil {
			return nil, nil
		}
		return scanRef(s.db.QueryRowContext(ctx, `
			SELECT c.chunk_id, c.page_no
			FROM chunks c
			WHERE c.source_id = ? AND c.page_no = ? AND `+scopeExpr+` = 'page'
			ORDER BY `+orderIndexExpr+` ASC, c.chunk_id ASC
			LIMIT 1
		`, sourceID, *pageNo))
	}
}

// physicalPageOf derives a physical-page index from a locator string,
// returning nil when the locator does not follow the convention.
func physicalPageOf(locator *string) *int {
	if locator == nil {
		return nil
	}
	n, ok := corpus.PhysicalPageFromLocator(*locator)
	if !ok {
		return nil
	}
	return &n
}
