package corpus

import (
	"strconv"
	"strings"
)

// PhysicalPagePrefix is the reserved locator convention marking a
// physical (scanned) page index, e.g. "pdf_page:41".
const PhysicalPagePrefix = "pdf_page:"

// PhysicalPageFromLocator parses the physical-page index out of a
// locator string. The second result is false when the locator does not
// follow the convention.
func PhysicalPageFromLocator(locator string) (int, bool) {
	rest, ok := strings.CutPrefix(locator, PhysicalPagePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return n, true
}

// navKey is the adjacency key over page-scoped chunks:
// (page_no, chunk_id). The store's navigation queries order by exactly
// this key, chunk-id tie-break included; the type pins the definition
// the SQL must mirror.
type navKey struct {
	PageNo  int
	ChunkID string
}

// Less reports whether k orders strictly before o.
func (k navKey) Less(o navKey) bool {
	if k.PageNo != o.PageNo {
		return k.PageNo < o.PageNo
	}
	return k.ChunkID < o.ChunkID
}

// listKey is the listing key over page-scoped chunks within a source:
// (page_no, order_index, chunk_id).
type listKey struct {
	PageNo     int
	OrderIndex int
	ChunkID    string
}

// Less reports whether k orders strictly before o.
func (k listKey) Less(o listKey) bool {
	if k.PageNo != o.PageNo {
		return k.PageNo < o.PageNo
	}
	if k.OrderIndex != o.OrderIndex {
		return k.OrderIndex < o.OrderIndex
	}
	return k.ChunkID < o.ChunkID
}
