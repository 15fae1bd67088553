package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	id, err := s.PutMemory(ctx, model.MemoryRecord{
		Title:   "Dentist appointment",
		Content: "Dentist appointment on 2024-01-15 at 10am.",
		DynamicFields: map[string]any{
			"date": "2024-01-15",
			"type": "appointment",
		},
		Embedding: []float32{0.1, 0.2, 0.3},
		CreatedAt: created,
	}, nil)
	if err != nil {
		t.Fatalf("PutMemory: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	got, err := s.GetMemories(ctx, []int64{id})
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	rec, ok := got[id]
	if !ok {
		t.Fatalf("record %d not found", id)
	}
	if rec.Title != "Dentist appointment" {
		t.Fatalf("title round trip failed: %q", rec.Title)
	}
	if model.StringFromAny(rec.Field("date")) != "2024-01-15" {
		t.Fatalf("dynamic field round trip failed: %v", rec.Field("date"))
	}
	if len(rec.Embedding) != 3 {
		t.Fatalf("embedding round trip failed: %v", rec.Embedding)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Fatalf("created_at round trip failed: %v", rec.CreatedAt)
	}
}

func TestSQLiteDuplicateContent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	first, err := s.PutMemory(ctx, model.MemoryRecord{Content: "note"}, nil)
	if err != nil {
		t.Fatalf("PutMemory: %v", err)
	}
	second, err := s.PutMemory(ctx, model.MemoryRecord{Content: "note"}, nil)
	if !errors.Is(err, ErrDuplicateContent) {
		t.Fatalf("expected ErrDuplicateContent, got %v", err)
	}
	if second != first {
		t.Fatalf("duplicate should return original id %d, got %d", first, second)
	}
}

func TestSQLiteSearchFields(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	if _, err := s.PutMemory(ctx, model.MemoryRecord{
		Title:         "Lunch with Alice",
		Content:       "Lunch with Alice at the ramen place.",
		DynamicFields: map[string]any{"person": "Alice"},
	}, nil); err != nil {
		t.Fatalf("PutMemory: %v", err)
	}
	if _, err := s.PutMemory(ctx, model.MemoryRecord{
		Title:   "Team offsite",
		Content: "Planning doc for the offsite, Alice presenting.",
	}, nil); err != nil {
		t.Fatalf("PutMemory: %v", err)
	}

	matches, err := s.SearchFields(ctx, []string{"alice"}, 10)
	if err != nil {
		t.Fatalf("SearchFields: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if !matches[0].Exact || matches[0].Field != "person" {
		t.Fatalf("expected exact person match first, got field=%q exact=%v", matches[0].Field, matches[0].Exact)
	}
}

func TestSQLiteVectorScan(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	if _, err := s.PutMemory(ctx, model.MemoryRecord{
		Content:   "close",
		Embedding: []float32{1, 0},
	}, nil); err != nil {
		t.Fatalf("PutMemory: %v", err)
	}
	if _, err := s.PutMemory(ctx, model.MemoryRecord{
		Content:   "far",
		Embedding: []float32{0, 1},
	}, nil); err != nil {
		t.Fatalf("PutMemory: %v", err)
	}
	if _, err := s.PutMemory(ctx, model.MemoryRecord{Content: "no embedding"}, nil); err != nil {
		t.Fatalf("PutMemory: %v", err)
	}

	got, err := s.SearchByVector(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("SearchByVector: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 embedded records, got %d", len(got))
	}
	if got[0].Content != "close" {
		t.Fatalf("expected closest record first, got %q", got[0].Content)
	}
}

func TestSQLiteNeighborhood(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	a, err := s.PutMemory(ctx, model.MemoryRecord{Title: "A", Content: "memory a"}, nil)
	if err != nil {
		t.Fatalf("PutMemory: %v", err)
	}
	b, err := s.PutMemory(ctx, model.MemoryRecord{Title: "B", Content: "memory b"},
		[]model.GraphEdge{{Target: a, Type: model.EdgeMentions}})
	if err != nil {
		t.Fatalf("PutMemory: %v", err)
	}
	c, err := s.PutMemory(ctx, model.MemoryRecord{Title: "C", Content: "memory c"},
		[]model.GraphEdge{{Target: b, Type: model.EdgeFollows}})
	if err != nil {
		t.Fatalf("PutMemory: %v", err)
	}

	neighbors, err := s.Neighborhood(ctx, []int64{a}, 2, 10)
	if err != nil {
		t.Fatalf("Neighborhood: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(neighbors))
	}
	if neighbors[0].Record.ID != b || neighbors[0].Hops != 1 {
		t.Fatalf("expected B at hop 1, got %d at hop %d", neighbors[0].Record.ID, neighbors[0].Hops)
	}
	if neighbors[1].Record.ID != c || neighbors[1].Hops != 2 {
		t.Fatalf("expected C at hop 2, got %d at hop %d", neighbors[1].Record.ID, neighbors[1].Hops)
	}
	if neighbors[0].Path != "A -mentions-> B" {
		t.Fatalf("unexpected 1-hop path %q", neighbors[0].Path)
	}
	if neighbors[1].Path != "A -mentions-> B -follows-> C" {
		t.Fatalf("every hop should carry its title label, got %q", neighbors[1].Path)
	}
}
