package store

import (
	"context"
	"strings"
	"testing"

	"github.com/amline/maktaba/core/corpus"
)

func TestReaderDirectChunk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, nav, err := s.ResolveReader(ctx, corpus.ReaderAnchor{ChunkID: "ch-011a"})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if ch == nil {
		t.Fatal("chunk not found")
	}
	if ch.ChunkID != "ch-011a" || ch.ReaderScope != corpus.ReaderScopePage {
		t.Fatalf("unexpected chunk: %+v", ch)
	}
	if ch.SourceTitle != "Kitab al-Nahw" {
		t.Errorf("source title = %q", ch.SourceTitle)
	}
	// Neighbors in (page, chunk id) order: the previous chunk is the
	// last of page 10, the next is the second chunk of page 11.
	if nav.PrevChunkID == nil || *nav.PrevChunkID != "ch-010" {
		t.Errorf("prev = %v, want ch-010", nav.PrevChunkID)
	}
	if nav.PrevPageNo == nil || *nav.PrevPageNo != 10 {
		t.Errorf("prev page = %v, want 10", nav.PrevPageNo)
	}
	if nav.NextChunkID == nil || *nav.NextChunkID != "ch-011b" {
		t.Errorf("next = %v, want ch-011b", nav.NextChunkID)
	}
	if nav.NextPageNo == nil || *nav.NextPageNo != 11 {
		t.Errorf("next page = %v, want 11", nav.NextPageNo)
	}
}

func TestReaderBoundaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// First chunk of the source: no previous.
	_, nav, err := s.ResolveReader(ctx, corpus.ReaderAnchor{ChunkID: "ch-010"})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if nav.PrevChunkID != nil {
		t.Errorf("prev = %v, want nil", nav.PrevChunkID)
	}
	if nav.NextChunkID == nil || *nav.NextChunkID != "ch-011a" {
		t.Errorf("next = %v, want ch-011a", nav.NextChunkID)
	}

	// Last chunk: no next.
	_, nav, err = s.ResolveReader(ctx, corpus.ReaderAnchor{ChunkID: "ch-014"})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if nav.NextChunkID != nil {
		t.Errorf("next = %v, want nil", nav.NextChunkID)
	}
	if nav.PrevChunkID == nil || *nav.PrevChunkID != "ch-013" {
		t.Errorf("prev = %v, want ch-013", nav.PrevChunkID)
	}
}

func TestReaderBySourceAndPage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, _, err := s.ResolveReader(ctx, corpus.ReaderAnchor{SourceCode: "NAHW", PageNo: intPtr(11)})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if ch == nil || ch.ChunkID != "ch-011a" {
		t.Fatalf("page anchor resolved to %v, want ch-011a", ch)
	}
}

func TestReaderHandleReresolution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A TOC-scoped chunk is a navigation handle: reading it serves the
	// page chunk its parent reference points at.
	ch, nav, err := s.ResolveReader(ctx, corpus.ReaderAnchor{ChunkID: "ch-toc-handle"})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if ch == nil || ch.ChunkID != "ch-010" {
		t.Fatalf("handle resolved to %v, want ch-010", ch)
	}
	if ch.ReaderScope != corpus.ReaderScopePage {
		t.Errorf("scope = %q, want page", ch.ReaderScope)
	}
	if nav.NextChunkID == nil || *nav.NextChunkID != "ch-011a" {
		t.Errorf("next = %v, want ch-011a", nav.NextChunkID)
	}
}

func TestReaderTOCSpan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// toc-001 starts on page 10; toc-002 starts on page 14, so the span
	// covers pages 10-13: five page chunks, each behind a separator.
	ch, nav, err := s.ResolveReader(ctx, corpus.ReaderAnchor{TOCID: "toc-001"})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if ch == nil {
		t.Fatal("toc entry not found")
	}
	if ch.ReaderScope != corpus.ReaderScopeTOC {
		t.Fatalf("scope = %q, want toc", ch.ReaderScope)
	}
	if ch.TOCID == nil || *ch.TOCID != "toc-001" {
		t.Errorf("toc_id = %v", ch.TOCID)
	}
	if ch.ChunkID != "ch-010" {
		t.Errorf("span anchor chunk = %s, want ch-010", ch.ChunkID)
	}
	if ch.PageNo == nil || *ch.PageNo != 10 {
		t.Errorf("page_no = %v, want 10", ch.PageNo)
	}
	if ch.PageTo == nil || *ch.PageTo != 13 {
		t.Errorf("page_to = %v, want 13", ch.PageTo)
	}
	if got := strings.Count(ch.Text, "Page "); got != 5 {
		t.Errorf("span has %d page separators, want 5", got)
	}
	if !strings.Contains(ch.Text, "Page 11 | Chapter Two") {
		t.Errorf("missing separator line in span:\n%s", ch.Text)
	}

	// TOC navigation cursors, not chunk cursors.
	if nav.PrevTOCID != nil {
		t.Errorf("prev_toc_id = %v, want nil", nav.PrevTOCID)
	}
	if nav.NextTOCID == nil || *nav.NextTOCID != "toc-002" {
		t.Errorf("next_toc_id = %v, want toc-002", nav.NextTOCID)
	}
}

func TestReaderTOCUnresolved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// toc-003 has no page, no locator, and no physical-page index. It is
	// still served, as a synthetic block with id-ordered TOC neighbors.
	ch, nav, err := s.ResolveReader(ctx, corpus.ReaderAnchor{TOCID: "toc-003"})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if ch == nil {
		t.Fatal("unresolvable toc entry must still be served")
	}
	if ch.ReaderScope != corpus.ReaderScopeTOC {
		t.Errorf("scope = %q, want toc", ch.ReaderScope)
	}
	if ch.PageNo != nil {
		t.Errorf("page_no = %v, want nil", ch.PageNo)
	}
	if !strings.Contains(ch.Text, "Lost Chapter") || !strings.Contains(ch.Text, "Page not found") {
		t.Errorf("synthetic body missing title or notice:\n%s", ch.Text)
	}
	if nav.PrevTOCID == nil || *nav.PrevTOCID != "toc-002" {
		t.Errorf("prev_toc_id = %v, want toc-002", nav.PrevTOCID)
	}
	if nav.NextTOCID != nil {
		t.Errorf("next_toc_id = %v, want nil", nav.NextTOCID)
	}
}

func TestReaderEmptyAnchor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, nav, err := s.ResolveReader(ctx, corpus.ReaderAnchor{})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if ch != nil {
		t.Errorf("empty anchor resolved to %+v", ch)
	}
	if nav != (corpus.ReaderNav{}) {
		t.Errorf("empty anchor carried nav %+v", nav)
	}
}

func TestReaderUnknownIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, _, err := s.ResolveReader(ctx, corpus.ReaderAnchor{ChunkID: "ch-missing"})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if ch != nil {
		t.Errorf("unknown chunk resolved to %+v", ch)
	}

	ch, _, err = s.ResolveReader(ctx, corpus.ReaderAnchor{SourceCode: "NAHW", PageNo: intPtr(999)})
	if err != nil {
		t.Fatalf("ResolveReader: %v", err)
	}
	if ch != nil {
		t.Errorf("unknown page resolved to %+v", ch)
	}
}
