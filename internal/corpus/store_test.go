package corpus

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"campfire/internal/model"
)

const severeBleedingDoc = `Severe bleeding
Apply firm, direct pressure to the wound with a clean cloth or bandage.
Keep the pressure constant and do not lift the cloth to check the wound.
Raise the injured limb above heart level when possible.`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "corpus.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddDocumentAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddDocument(ctx, "bleeding/severe", "Severe bleeding", severeBleedingDoc); err != nil {
		t.Fatalf("add document: %v", err)
	}

	hits, err := s.Search(ctx, "direct pressure wound", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits for indexed terms")
	}
	hit := hits[0]
	if hit.DocID != "bleeding/severe" {
		t.Fatalf("hit doc %q", hit.DocID)
	}
	if hit.Start < 0 || hit.End <= hit.Start {
		t.Fatalf("invalid hit span [%d, %d)", hit.Start, hit.End)
	}

	// the hit offsets must map back onto real document text
	span, err := s.Open(ctx, hit.DocID, hit.Start, hit.End)
	if err != nil {
		t.Fatalf("open hit span: %v", err)
	}
	if !strings.Contains(severeBleedingDoc, span) {
		t.Fatalf("hit span is not document text: %q", span)
	}
}

func TestSearchPunctuationQueryIsSafe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddDocument(ctx, "doc", "", "plain text"); err != nil {
		t.Fatal(err)
	}

	// raw FTS syntax in the query must not surface as an error
	if _, err := s.Search(ctx, `"unbalanced AND (NEAR`, 5); err != nil {
		t.Fatalf("punctuation query errored: %v", err)
	}
	hits, err := s.Search(ctx, "!!! ???", 5)
	if err != nil {
		t.Fatalf("symbol-only query errored: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("symbol-only query matched: %v", hits)
	}
}

func TestOpenBounds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	text := "héllo wörld"
	if err := s.AddDocument(ctx, "doc", "", text); err != nil {
		t.Fatal(err)
	}

	// offsets are rune offsets
	got, err := s.Open(ctx, "doc", 0, 5)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got != "héllo" {
		t.Fatalf("rune span %q", got)
	}

	for _, tc := range [][2]int{{-1, 3}, {0, 100}, {5, 5}, {7, 2}} {
		if _, err := s.Open(ctx, "doc", tc[0], tc[1]); !errors.Is(err, model.ErrRangeOutOfBounds) {
			t.Fatalf("open [%d, %d): want ErrRangeOutOfBounds, got %v", tc[0], tc[1], err)
		}
	}

	if _, err := s.Open(ctx, "missing", 0, 1); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFindForwardSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddDocument(ctx, "doc", "", "one wound, two WOUND, done"); err != nil {
		t.Fatal(err)
	}

	offset, found, err := s.Find(ctx, "doc", "wound", 0)
	if err != nil || !found {
		t.Fatalf("first find: offset=%d found=%v err=%v", offset, found, err)
	}
	if offset != 4 {
		t.Fatalf("first match at %d, want 4", offset)
	}

	offset, found, err = s.Find(ctx, "doc", "wound", offset+1)
	if err != nil || !found {
		t.Fatalf("second find: found=%v err=%v", found, err)
	}
	if offset != 15 {
		t.Fatalf("case-insensitive second match at %d, want 15", offset)
	}

	_, found, err = s.Find(ctx, "doc", "wound", offset+1)
	if err != nil {
		t.Fatalf("non-match errored: %v", err)
	}
	if found {
		t.Fatal("match past end of occurrences")
	}

	if _, _, err := s.Find(ctx, "missing", "x", 0); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFindOffsetsStayRuneAligned(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	// İ lowers to a different byte width; the returned offset must still
	// index the original document's runes
	if err := s.AddDocument(ctx, "doc", "", "aa İstanbul bb"); err != nil {
		t.Fatal(err)
	}

	offset, found, err := s.Find(ctx, "doc", "istanbul", 0)
	if err != nil || !found {
		t.Fatalf("find: offset=%d found=%v err=%v", offset, found, err)
	}
	if offset != 3 {
		t.Fatalf("match at %d, want 3", offset)
	}

	span, err := s.Open(ctx, "doc", offset, offset+8)
	if err != nil {
		t.Fatalf("open at found offset: %v", err)
	}
	if span != "İstanbul" {
		t.Fatalf("offset drifted: opened %q", span)
	}
}

func TestDocumentLength(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	text := "àbcdé"
	if err := s.AddDocument(ctx, "doc", "", text); err != nil {
		t.Fatal(err)
	}

	n, err := s.DocumentLength(ctx, "doc")
	if err != nil {
		t.Fatalf("length: %v", err)
	}
	if n != 5 {
		t.Fatalf("rune length %d, want 5", n)
	}
	if _, err := s.DocumentLength(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestReingestReplacesChunks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddDocument(ctx, "doc", "", "first version about tourniquets"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDocument(ctx, "doc", "", "second version about splints"); err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search(ctx, "tourniquets", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatal("stale chunks survived re-ingest")
	}
	hits, err = s.Search(ctx, "splints", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("new content not searchable: %v", hits)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 1 {
		t.Fatalf("documents = %d after upsert", stats.Documents)
	}
}
