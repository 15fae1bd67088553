package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

func seedStore(t *testing.T) *InMemoryStore {
	t.Helper()
	s := NewInMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []struct {
		rec   model.MemoryRecord
		edges []model.GraphEdge
	}{
		{
			rec: model.MemoryRecord{
				Title:   "Meeting with Sarah",
				Content: "Discussed the Q3 roadmap with Sarah over coffee.",
				DynamicFields: map[string]any{
					"person":            "Sarah",
					"person_confidence": 0.9,
					"date":              "2024-01-15",
				},
				Embedding: []float32{1, 0, 0},
				CreatedAt: base,
			},
		},
		{
			rec: model.MemoryRecord{
				Title:         "Project Atlas kickoff",
				Content:       "Atlas project kickoff notes, Sarah leads backend.",
				DynamicFields: map[string]any{"project": "Atlas"},
				Embedding:     []float32{0.9, 0.1, 0},
				CreatedAt:     base.Add(time.Hour),
			},
			edges: []model.GraphEdge{{Target: 1, Type: model.EdgeMentions}},
		},
		{
			rec: model.MemoryRecord{
				Title:         "Backend architecture review",
				Content:       "Reviewed service boundaries for the backend split.",
				DynamicFields: map[string]any{"topic": "architecture"},
				Embedding:     []float32{0, 1, 0},
				CreatedAt:     base.Add(2 * time.Hour),
			},
			edges: []model.GraphEdge{{Target: 2, Type: model.EdgeRelatesTo}},
		},
	}
	for _, r := range records {
		if _, err := s.PutMemory(ctx, r.rec, r.edges); err != nil {
			t.Fatalf("PutMemory: %v", err)
		}
	}
	return s
}

func TestPutMemoryDeduplicatesByContentHash(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	first, err := s.PutMemory(ctx, model.MemoryRecord{Content: "same content"}, nil)
	if err != nil {
		t.Fatalf("first PutMemory: %v", err)
	}
	second, err := s.PutMemory(ctx, model.MemoryRecord{Content: "same content"}, nil)
	if !errors.Is(err, ErrDuplicateContent) {
		t.Fatalf("expected ErrDuplicateContent, got %v", err)
	}
	if second != first {
		t.Fatalf("duplicate should report the original id %d, got %d", first, second)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestSearchFieldsExactBeatsPartial(t *testing.T) {
	s := seedStore(t)
	matches, err := s.SearchFields(context.Background(), []string{"sarah"}, 10)
	if err != nil {
		t.Fatalf("SearchFields: %v", err)
	}
	if len(matches) < 2 {
		t.Fatalf("expected at least 2 matches, got %d", len(matches))
	}
	if !matches[0].Exact || matches[0].Field != "person" {
		t.Fatalf("expected exact person-field match first, got field=%q exact=%v", matches[0].Field, matches[0].Exact)
	}
	if matches[0].FieldConfidence != 0.9 {
		t.Fatalf("expected recorded field confidence 0.9, got %v", matches[0].FieldConfidence)
	}
	for _, m := range matches[1:] {
		if m.Exact {
			t.Fatalf("partial matches must sort after exact ones")
		}
	}
}

func TestSearchByVectorOrdersBySimilarity(t *testing.T) {
	s := seedStore(t)
	got, err := s.SearchByVector(context.Background(), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SearchByVector: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Title != "Meeting with Sarah" {
		t.Fatalf("expected closest record first, got %q", got[0].Title)
	}
	if got[0].Score < got[1].Score {
		t.Fatalf("scores not descending: %v then %v", got[0].Score, got[1].Score)
	}
	for _, rec := range got {
		if rec.Score < 0 || rec.Score > 1 {
			t.Fatalf("score %v outside [0,1]", rec.Score)
		}
	}
}

func TestNeighborhoodTracksHopsAndPath(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	seeds, err := s.Seeds(ctx, []string{"sarah"}, 1)
	if err != nil || len(seeds) == 0 {
		t.Fatalf("Seeds: ids=%v err=%v", seeds, err)
	}

	neighbors, err := s.Neighborhood(ctx, []int64{1}, 2, 10)
	if err != nil {
		t.Fatalf("Neighborhood: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors within 2 hops, got %d", len(neighbors))
	}
	if neighbors[0].Hops != 1 || neighbors[0].Record.ID != 2 {
		t.Fatalf("expected record 2 at hop 1, got record %d at hop %d", neighbors[0].Record.ID, neighbors[0].Hops)
	}
	if neighbors[1].Hops != 2 || neighbors[1].Record.ID != 3 {
		t.Fatalf("expected record 3 at hop 2, got record %d at hop %d", neighbors[1].Record.ID, neighbors[1].Hops)
	}
	if !strings.Contains(neighbors[1].Path, string(model.EdgeRelatesTo)) {
		t.Fatalf("path should mention the traversed edge type, got %q", neighbors[1].Path)
	}
}

func TestNeighborhoodHopCap(t *testing.T) {
	s := seedStore(t)
	neighbors, err := s.Neighborhood(context.Background(), []int64{1}, 1, 10)
	if err != nil {
		t.Fatalf("Neighborhood: %v", err)
	}
	for _, n := range neighbors {
		if n.Hops > 1 {
			t.Fatalf("hop cap 1 violated: record %d at hop %d", n.Record.ID, n.Hops)
		}
	}
}

func TestGetMemoriesReturnsOnlyKnownIDs(t *testing.T) {
	s := seedStore(t)
	got, err := s.GetMemories(context.Background(), []int64{1, 99})
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if _, ok := got[1]; !ok {
		t.Fatalf("expected record 1 present")
	}
}
