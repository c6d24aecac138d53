package store

import (
	"context"
	"strings"
	"testing"

	"github.com/amline/maktaba/core/corpus"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// newTestStore opens an in-memory corpus seeded with two sources: a
// grammar treatise with pages 10-14 (page 11 split into two chunks, one
// TOC-handle chunk, three TOC entries, three index terms) and a small
// poetry collection, plus lexicon evidence spanning both.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seeding corpus: %v", err)
		}
	}

	must(s.InsertSource(ctx, corpus.Source{
		SourceID:   "src-nahw",
		SourceCode: "NAHW",
		Title:      "Kitab al-Nahw",
		Author:     strPtr("Ibn Ajurrum"),
		Language:   strPtr("ar"),
		Type:       "book",
	}))
	must(s.InsertSource(ctx, corpus.Source{
		SourceID:   "src-adab",
		SourceCode: "ADAB",
		Title:      "Diwan al-Hamasa",
		Type:       "book",
	}))

	chunks := []corpus.Chunk{
		{
			ChunkID: "ch-010", SourceID: "src-nahw", PageNo: intPtr(10),
			Locator:    strPtr("pdf_page:22"),
			HeadingRaw: strPtr("Chapter One"),
			ChunkType:  strPtr("grammar"),
			Text:       "The particles of jarr govern the genitive case.",
		},
		{
			ChunkID: "ch-011a", SourceID: "src-nahw", PageNo: intPtr(11),
			Locator:    strPtr("pdf_page:23"),
			HeadingRaw: strPtr("Chapter Two"),
			ChunkType:  strPtr("grammar"),
			Text:       "The subject of a nominal sentence is raised.",
		},
		{
			ChunkID: "ch-011b", SourceID: "src-nahw", PageNo: intPtr(11),
			ChunkType: strPtr("grammar"),
			Text:      "Its predicate follows it in case.",
		},
		{
			ChunkID: "ch-012", SourceID: "src-nahw", PageNo: intPtr(12),
			Locator:    strPtr("pdf_page:24"),
			HeadingRaw: strPtr("Chapter Three"),
			ChunkType:  strPtr("grammar"),
			Text:       "The verbal sentence begins with its verb.",
		},
		{
			ChunkID: "ch-013", SourceID: "src-nahw", PageNo: intPtr(13),
			Locator:   strPtr("pdf_page:25"),
			ChunkType: strPtr("grammar"),
			Text:      "Exceptions to the preceding rules.",
		},
		{
			ChunkID: "ch-014", SourceID: "src-nahw", PageNo: intPtr(14),
			Locator:   strPtr("pdf_page:26"),
			ChunkType: strPtr("grammar"),
			Text:      "Closing remarks of the treatise.",
		},
		{
			ChunkID: "ch-toc-handle", SourceID: "src-nahw",
			HeadingRaw: strPtr("Bab al-Kalam"),
			Text:       "Bab al-Kalam",
			Meta:       corpus.ChunkMeta{ChunkScope: corpus.ScopeTOC, ParentChunkID: "ch-010"},
		},
		{
			ChunkID: "ch-adab-005", SourceID: "src-adab", PageNo: intPtr(5),
			HeadingRaw: strPtr("Opening Poem"),
			ChunkType:  strPtr("literature"),
			Text:       "A poem on generosity and hospitality.",
		},
	}
	for _, ch := range chunks {
		must(s.InsertChunk(ctx, ch))
	}

	must(s.InsertTOCEntry(ctx, "src-nahw", corpus.TOCRow{
		TOCID: "toc-001", IndexPath: "001", TitleRaw: "Bab al-Kalam", PageNo: intPtr(10),
	}))
	must(s.InsertTOCEntry(ctx, "src-nahw", corpus.TOCRow{
		TOCID: "toc-002", IndexPath: "002", TitleRaw: "Bab al-I'rab", PageNo: intPtr(14),
	}))
	must(s.InsertTOCEntry(ctx, "src-nahw", corpus.TOCRow{
		TOCID: "toc-003", IndexPath: "003", TitleRaw: "Lost Chapter",
	}))

	must(s.InsertIndexEntry(ctx, "src-nahw", corpus.IndexRow{
		IndexID: "idx-001", TermRaw: "I'rab", HeadChunkID: strPtr("ch-010"),
	}))
	must(s.InsertIndexEntry(ctx, "src-nahw", corpus.IndexRow{
		IndexID: "idx-002", TermRaw: "Jarr", IndexLocator: strPtr("pdf_page:23"),
	}))
	must(s.InsertIndexEntry(ctx, "src-nahw", corpus.IndexRow{
		IndexID: "idx-003", TermRaw: "Tamyiz", IndexPageNo: intPtr(12),
	}))

	must(s.InsertEvidence(ctx, Evidence{
		EvidenceID: "ev-001", LexiconID: "LEX-001", SourceID: "src-nahw",
		ChunkID: strPtr("ch-010"), PageNo: intPtr(10), LinkRole: "citation",
		ExtractText: strPtr("harf al-jarr governs the genitive"),
		Notes:       strPtr("see also majrur"),
	}))
	must(s.InsertEvidence(ctx, Evidence{
		EvidenceID: "ev-002", LexiconID: "LEX-001", SourceID: "src-adab",
		PageNo:      intPtr(5),
		ExtractText: strPtr("poetic usage of jarr"),
	}))

	return s
}

func TestSearchSources(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total, hits, err := s.SearchSources(ctx, "", 50, 0)
	if err != nil {
		t.Fatalf("SearchSources: %v", err)
	}
	if total != 2 || len(hits) != 2 {
		t.Fatalf("got total=%d len=%d, want 2/2", total, len(hits))
	}
	// Title order: Diwan before Kitab.
	if hits[0].SourceCode != "ADAB" || hits[1].SourceCode != "NAHW" {
		t.Fatalf("unexpected order: %s, %s", hits[0].SourceCode, hits[1].SourceCode)
	}
	// The TOC-handle chunk is not page content and must not be counted.
	if hits[1].ChunkCount != 6 {
		t.Errorf("NAHW chunk_count = %d, want 6", hits[1].ChunkCount)
	}

	total, hits, err = s.SearchSources(ctx, "Ajurrum", 50, 0)
	if err != nil {
		t.Fatalf("SearchSources by author: %v", err)
	}
	if total != 1 || hits[0].SourceCode != "NAHW" {
		t.Fatalf("author filter: got total=%d", total)
	}
}

func TestListPages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total, rows, err := s.ListPages(ctx, Filters{SourceCode: "NAHW", Limit: 5000})
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if total != 6 {
		t.Fatalf("total = %d, want 6", total)
	}
	wantOrder := []string{"ch-010", "ch-011a", "ch-011b", "ch-012", "ch-013", "ch-014"}
	for i, want := range wantOrder {
		if rows[i].ChunkID != want {
			t.Fatalf("row %d = %s, want %s", i, rows[i].ChunkID, want)
		}
	}

	// Heading filter is matched against the normalized projection.
	total, rows, err = s.ListPages(ctx, Filters{SourceCode: "NAHW", HeadingNorm: "Chapter  TWO", Limit: 5000})
	if err != nil {
		t.Fatalf("ListPages heading filter: %v", err)
	}
	if total != 1 || rows[0].ChunkID != "ch-011a" {
		t.Fatalf("heading filter: total=%d", total)
	}

	total, _, err = s.ListPages(ctx, Filters{SourceCode: "NAHW", PageFrom: intPtr(11), PageTo: intPtr(12), Limit: 5000})
	if err != nil {
		t.Fatalf("ListPages page range: %v", err)
	}
	if total != 3 {
		t.Errorf("page range total = %d, want 3", total)
	}
}

func TestSearchChunksRanked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total, hits, err := s.SearchChunks(ctx, Filters{Query: "particles", Limit: 50})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if total != 1 || len(hits) != 1 {
		t.Fatalf("got total=%d len=%d, want 1/1", total, len(hits))
	}
	h := hits[0]
	if h.ChunkID != "ch-010" {
		t.Fatalf("chunk = %s, want ch-010", h.ChunkID)
	}
	if h.Rank == nil {
		t.Error("ranked search must carry a rank")
	}
	if h.Hit == nil || !strings.Contains(*h.Hit, "[particles]") {
		t.Errorf("snippet missing highlight: %v", h.Hit)
	}
}

func TestSearchChunksUnranked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total, hits, err := s.SearchChunks(ctx, Filters{SourceCode: "NAHW", ChunkType: "grammar", Limit: 50})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if total != 6 {
		t.Fatalf("total = %d, want 6", total)
	}
	// Canonical (page, chunk id) order, no ranking.
	if hits[0].ChunkID != "ch-010" || hits[1].ChunkID != "ch-011a" {
		t.Fatalf("unexpected order: %s, %s", hits[0].ChunkID, hits[1].ChunkID)
	}
	if hits[0].Rank != nil {
		t.Error("unranked listing must not carry a rank")
	}
	if hits[0].Hit == nil || !strings.HasPrefix(*hits[0].Hit, "The particles") {
		t.Errorf("unranked hit should be a text prefix: %v", hits[0].Hit)
	}
}

func TestSearchChunksPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total, page1, err := s.SearchChunks(ctx, Filters{SourceCode: "NAHW", Limit: 4, Offset: 0})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	_, page2, err := s.SearchChunks(ctx, Filters{SourceCode: "NAHW", Limit: 4, Offset: 4})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if total != 6 || len(page1) != 4 || len(page2) != 2 {
		t.Fatalf("pagination: total=%d len1=%d len2=%d", total, len(page1), len(page2))
	}
	if page1[3].ChunkID == page2[0].ChunkID {
		t.Error("pages overlap")
	}
}

func TestListTOC(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total, rows, err := s.ListTOC(ctx, Filters{SourceCode: "NAHW", Limit: 5000})
	if err != nil {
		t.Fatalf("ListTOC: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("got total=%d len=%d, want 3/3", total, len(rows))
	}
	// Index-path order, and target resolution through the page number.
	if rows[0].TOCID != "toc-001" {
		t.Fatalf("first row = %s", rows[0].TOCID)
	}
	if rows[0].TargetChunkID == nil || *rows[0].TargetChunkID != "ch-010" {
		t.Errorf("toc-001 target = %v, want ch-010", rows[0].TargetChunkID)
	}
	if rows[1].TargetChunkID == nil || *rows[1].TargetChunkID != "ch-014" {
		t.Errorf("toc-002 target = %v, want ch-014", rows[1].TargetChunkID)
	}
	// No page, no locator, no physical page: unresolved.
	if rows[2].TargetChunkID != nil {
		t.Errorf("toc-003 target = %v, want nil", rows[2].TargetChunkID)
	}

	total, rows, err = s.ListTOC(ctx, Filters{SourceCode: "NAHW", Query: "kalam", Limit: 5000})
	if err != nil {
		t.Fatalf("ListTOC title filter: %v", err)
	}
	if total != 1 || rows[0].TOCID != "toc-001" {
		t.Fatalf("title filter: total=%d", total)
	}
}

func TestListIndexTerms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total, rows, err := s.ListIndexTerms(ctx, Filters{SourceCode: "NAHW", Limit: 5000})
	if err != nil {
		t.Fatalf("ListIndexTerms: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}

	byID := map[string]corpus.IndexRow{}
	for _, r := range rows {
		byID[r.IndexID] = r
	}
	// Head-chunk reference wins for idx-001.
	if tgt := byID["idx-001"].TargetChunkID; tgt == nil || *tgt != "ch-010" {
		t.Errorf("idx-001 target = %v, want ch-010", tgt)
	}
	// Exact locator match for idx-002.
	if tgt := byID["idx-002"].TargetChunkID; tgt == nil || *tgt != "ch-011a" {
		t.Errorf("idx-002 target = %v, want ch-011a", tgt)
	}
	// Plain page number for idx-003.
	if tgt := byID["idx-003"].TargetChunkID; tgt == nil || *tgt != "ch-012" {
		t.Errorf("idx-003 target = %v, want ch-012", tgt)
	}

	total, rows, err = s.ListIndexTerms(ctx, Filters{Query: "jarr", Limit: 5000})
	if err != nil {
		t.Fatalf("ListIndexTerms term filter: %v", err)
	}
	if total != 1 || rows[0].IndexID != "idx-002" {
		t.Fatalf("term filter: total=%d", total)
	}
}

func TestSearchEvidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total, hits, err := s.SearchEvidence(ctx, Filters{Query: "genitive", Limit: 50})
	if err != nil {
		t.Fatalf("SearchEvidence: %v", err)
	}
	if total != 1 || len(hits) != 1 {
		t.Fatalf("got total=%d, want 1", total)
	}
	h := hits[0]
	if h.LexiconID != "LEX-001" || h.SourceCode != "NAHW" {
		t.Fatalf("unexpected hit: %+v", h)
	}
	if h.ExtractHit == nil || !strings.Contains(*h.ExtractHit, "[genitive]") {
		t.Errorf("extract snippet missing highlight: %v", h.ExtractHit)
	}
	if h.Rank == nil {
		t.Error("ranked evidence search must carry a rank")
	}

	// Scoped to a lexicon concept without a query: unranked listing.
	total, hits, err = s.SearchEvidence(ctx, Filters{LexiconID: "LEX-001", Limit: 50})
	if err != nil {
		t.Fatalf("SearchEvidence by concept: %v", err)
	}
	if total != 2 {
		t.Fatalf("concept scope total = %d, want 2", total)
	}
	if hits[0].Rank != nil {
		t.Error("unranked evidence must not carry a rank")
	}
}

func TestListLexiconEvidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total, rows, err := s.ListLexiconEvidence(ctx, "LEX-001", "", 50, 0)
	if err != nil {
		t.Fatalf("ListLexiconEvidence: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("got total=%d, want 2", total)
	}
	// Source-code order: ADAB before NAHW.
	if rows[0].SourceCode != "ADAB" || rows[1].SourceCode != "NAHW" {
		t.Fatalf("unexpected order: %s, %s", rows[0].SourceCode, rows[1].SourceCode)
	}
	if rows[1].Title != "Kitab al-Nahw" {
		t.Errorf("title = %q", rows[1].Title)
	}

	total, _, err = s.ListLexiconEvidence(ctx, "LEX-001", "NAHW", 50, 0)
	if err != nil {
		t.Fatalf("ListLexiconEvidence scoped: %v", err)
	}
	if total != 1 {
		t.Errorf("source-scoped total = %d, want 1", total)
	}
}
