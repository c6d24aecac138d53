// Package corpus defines the domain model of the reference corpus:
// sources, chunks, table-of-contents entries, back-of-book index terms,
// lexicon evidence, and the text normalization and ordering rules shared
// by every query path.
package corpus

// Chunk scope tags. A chunk is either readable page content or a
// navigation handle (a TOC node or an index term) that resolves to page
// content at read time.
const (
	ScopePage = "page"
	ScopeTOC  = "toc"
	ScopeTerm = "term"
)

// ChunkTypes is the closed set of chunk type tags.
var ChunkTypes = []string{"grammar", "literature", "lexicon", "reference", "other"}

// ValidChunkType reports whether s is one of the declared chunk type tags.
func ValidChunkType(s string) bool {
	for _, t := range ChunkTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Source is a book or document in the corpus.
type Source struct {
	SourceID        string  `json:"source_id"`
	SourceCode      string  `json:"source_code"`
	Title           string  `json:"title"`
	Author          *string `json:"author"`
	PublicationYear *int    `json:"publication_year"`
	Language        *string `json:"language"`
	Type            string  `json:"type"`
}

// SourceHit is one row of a source search: the source plus a live count
// of its page-scoped chunks.
type SourceHit struct {
	SourceCode      string  `json:"source_code"`
	Title           string  `json:"title"`
	Author          *string `json:"author"`
	PublicationYear *int    `json:"publication_year"`
	Language        *string `json:"language"`
	Type            string  `json:"type"`
	ChunkCount      int     `json:"chunk_count"`
}

// ChunkMeta is the structured side payload carried by a chunk in its
// content_json column. Absent fields keep their defaults: scope "page",
// order index 0, no parent, no physical page.
type ChunkMeta struct {
	ChunkScope    string `json:"chunk_scope,omitempty"`
	ParentChunkID string `json:"parent_chunk_id,omitempty"`
	OrderIndex    int    `json:"order_index,omitempty"`
	PDFPageIndex  *int   `json:"pdf_page_index,omitempty"`
}

// Scope returns the effective scope tag, defaulting to page.
func (m ChunkMeta) Scope() string {
	if m.ChunkScope == "" {
		return ScopePage
	}
	return m.ChunkScope
}

// Chunk is the atomic addressable unit of a source's content.
type Chunk struct {
	ChunkID     string  `json:"chunk_id"`
	SourceID    string  `json:"source_id"`
	SourceCode  string  `json:"source_code"`
	PageNo      *int    `json:"page_no"`
	Locator     *string `json:"locator"`
	HeadingRaw  *string `json:"heading_raw"`
	HeadingNorm *string `json:"heading_norm"`
	ChunkType   *string `json:"chunk_type"`
	Text        string  `json:"text"`
	SearchText  string  `json:"search_text"`
	Meta        ChunkMeta
	ContentHash *string `json:"content_hash"`
}

// PageRow is one row of the page listing mode.
type PageRow struct {
	ChunkID     string  `json:"chunk_id"`
	SourceCode  string  `json:"source_code"`
	PageNo      *int    `json:"page_no"`
	HeadingRaw  *string `json:"heading_raw"`
	HeadingNorm *string `json:"heading_norm"`
	Locator     *string `json:"locator"`
}

// TOCRow is one row of the table-of-contents listing. TargetChunkID is
// a weak reference resolved at read time, never stored.
type TOCRow struct {
	TOCID         string  `json:"toc_id"`
	SourceCode    string  `json:"source_code"`
	Depth         int     `json:"depth"`
	IndexPath     string  `json:"index_path"`
	TitleRaw      string  `json:"title_raw"`
	TitleNorm     string  `json:"title_norm"`
	PageNo        *int    `json:"page_no"`
	Locator       *string `json:"locator"`
	PDFPageIndex  *int    `json:"pdf_page_index"`
	TargetChunkID *string `json:"target_chunk_id"`
}

// IndexRow is one row of the back-of-book index listing.
type IndexRow struct {
	IndexID       string  `json:"index_id"`
	SourceCode    string  `json:"source_code"`
	TermRaw       string  `json:"term_raw"`
	TermNorm      string  `json:"term_norm"`
	TermAr        *string `json:"term_ar"`
	TermArGuess   *string `json:"term_ar_guess"`
	HeadChunkID   *string `json:"head_chunk_id"`
	IndexPageNo   *int    `json:"index_page_no"`
	IndexLocator  *string `json:"index_locator"`
	PageRefsJSON  string  `json:"page_refs_json"`
	VariantsJSON  *string `json:"variants_json"`
	TargetChunkID *string `json:"target_chunk_id"`
}

// ChunkHit is one row of a full-text chunk search. Hit is the
// highlighted snippet for ranked queries or a text prefix otherwise;
// Rank is the relevance score (lower sorts first) or null when the
// listing is unranked.
type ChunkHit struct {
	ChunkID     string   `json:"chunk_id"`
	SourceCode  string   `json:"source_code"`
	PageNo      *int     `json:"page_no"`
	Locator     *string  `json:"locator"`
	HeadingRaw  *string  `json:"heading_raw"`
	HeadingNorm *string  `json:"heading_norm"`
	ChunkType   *string  `json:"chunk_type"`
	Hit         *string  `json:"hit"`
	Rank        *float64 `json:"rank"`
}

// EvidenceHit is one row of a lexicon evidence search, with independent
// snippets for the extract and the notes fields.
type EvidenceHit struct {
	LexiconID  string   `json:"ar_u_lexicon"`
	ChunkID    *string  `json:"chunk_id"`
	SourceCode string   `json:"source_code"`
	PageNo     *int     `json:"page_no"`
	LinkRole   string   `json:"link_role"`
	ExtractHit *string  `json:"extract_hit"`
	NotesHit   *string  `json:"notes_hit"`
	Rank       *float64 `json:"rank"`
}

// LexiconEvidenceRow is one row of the per-concept evidence listing.
type LexiconEvidenceRow struct {
	SourceCode  string  `json:"source_code"`
	Title       string  `json:"title"`
	ChunkID     *string `json:"chunk_id"`
	PageNo      *int    `json:"page_no"`
	ExtractText *string `json:"extract_text"`
	Notes       *string `json:"notes"`
}

// Reader scopes distinguish a single-page chunk view from a TOC-bounded
// multi-page span.
const (
	ReaderScopePage = "page"
	ReaderScopeTOC  = "toc"
)

// ReaderAnchor is the input used to enter reader mode. Exactly one of
// ChunkID, TOCID, or the (SourceCode, PageNo) pair is normally set;
// TOCID wins over ChunkID, which wins over the pair.
type ReaderAnchor struct {
	ChunkID    string
	TOCID      string
	SourceCode string
	PageNo     *int
}

// Empty reports whether the anchor carries nothing resolvable.
func (a ReaderAnchor) Empty() bool {
	return a.ChunkID == "" && a.TOCID == "" && (a.SourceCode == "" || a.PageNo == nil)
}

// ReaderChunk is the renderable content block returned by reader mode.
// For a TOC span, PageTo carries the end page and Text concatenates the
// span's page-scoped chunks.
type ReaderChunk struct {
	ChunkID     string  `json:"chunk_id"`
	PageNo      *int    `json:"page_no"`
	PageTo      *int    `json:"page_to,omitempty"`
	HeadingRaw  *string `json:"heading_raw"`
	Locator     *string `json:"locator"`
	ChunkType   *string `json:"chunk_type"`
	Text        string  `json:"text"`
	SourceCode  string  `json:"source_code"`
	SourceTitle string  `json:"source_title"`
	ReaderScope string  `json:"reader_scope"`
	TOCID       *string `json:"toc_id"`
}

// ReaderNav is the stateless navigation cursor pair. Page views carry
// chunk cursors; TOC views carry TOC cursors.
type ReaderNav struct {
	PrevChunkID *string `json:"prev_chunk_id"`
	PrevPageNo  *int    `json:"prev_page_no"`
	NextChunkID *string `json:"next_chunk_id"`
	NextPageNo  *int    `json:"next_page_no"`
	PrevTOCID   *string `json:"prev_toc_id,omitempty"`
	NextTOCID   *string `json:"next_toc_id,omitempty"`
}
