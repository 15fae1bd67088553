package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

// InMemoryStore keeps everything in process memory. It is the default
// backend for tests and for running the CLI without external services.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]model.MemoryRecord
	byHash  map[string]int64
	edges   map[int64][]model.GraphEdge
	nowFn   func() time.Time
}

var _ Backend = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[int64]model.MemoryRecord),
		byHash:  make(map[string]int64),
		edges:   make(map[int64][]model.GraphEdge),
		nowFn:   time.Now,
	}
}

// PutMemory stores a record, assigning an identifier and deduplicating on
// content hash.
func (s *InMemoryStore) PutMemory(_ context.Context, rec model.MemoryRecord, edges []model.GraphEdge) (int64, error) {
	if rec.Content == "" {
		return 0, errors.New("memory content is empty")
	}
	hash := rec.ContentHash
	if hash == "" {
		hash = model.HashContent(rec.Content)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byHash[hash]; ok {
		return id, ErrDuplicateContent
	}
	s.nextID++
	rec.ID = s.nextID
	rec.ContentHash = hash
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.nowFn().UTC()
	}
	rec.DynamicFields = model.CloneFields(rec.DynamicFields)
	s.records[rec.ID] = rec
	s.byHash[hash] = rec.ID
	if valid := model.ValidEdges(edges); len(valid) > 0 {
		s.edges[rec.ID] = valid
	}
	return rec.ID, nil
}

func (s *InMemoryStore) SearchFields(_ context.Context, terms []string, limit int) ([]FieldMatch, error) {
	terms = NormalizeTerms(terms)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]FieldMatch, 0)
	for _, rec := range s.records {
		if m, ok := BestFieldMatch(rec, terms); ok {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Exact != matches[j].Exact {
			return matches[i].Exact
		}
		return matches[i].Record.CreatedAt.After(matches[j].Record.CreatedAt)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *InMemoryStore) SearchByVector(_ context.Context, queryEmbedding []float32, limit int) ([]model.MemoryRecord, error) {
	if len(queryEmbedding) == 0 || limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]model.MemoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		if len(rec.Embedding) == 0 {
			continue
		}
		rec.Score = ClampUnit(model.CosineSimilarity(queryEmbedding, rec.Embedding))
		scored = append(scored, rec)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].CreatedAt.After(scored[j].CreatedAt)
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *InMemoryStore) Seeds(_ context.Context, terms []string, limit int) ([]int64, error) {
	terms = NormalizeTerms(terms)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type seed struct {
		id    int64
		exact bool
	}
	seeds := make([]seed, 0)
	for id, rec := range s.records {
		if m, ok := BestFieldMatch(rec, terms); ok {
			seeds = append(seeds, seed{id: id, exact: m.Exact})
		}
	}
	sort.Slice(seeds, func(i, j int) bool {
		if seeds[i].exact != seeds[j].exact {
			return seeds[i].exact
		}
		return seeds[i].id < seeds[j].id
	})
	if len(seeds) > limit {
		seeds = seeds[:limit]
	}
	ids := make([]int64, len(seeds))
	for i, sd := range seeds {
		ids[i] = sd.id
	}
	return ids, nil
}

// Neighborhood walks edges in both directions from the seeds, breadth first,
// recording the shortest hop distance and one path per reached node.
func (s *InMemoryStore) Neighborhood(_ context.Context, seedIDs []int64, maxHops, limit int) ([]GraphNeighbor, error) {
	if len(seedIDs) == 0 || maxHops <= 0 || limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	adjacency := make(map[int64][]model.GraphEdge)
	for from, outgoing := range s.edges {
		for _, edge := range outgoing {
			adjacency[from] = append(adjacency[from], edge)
			adjacency[edge.Target] = append(adjacency[edge.Target], model.GraphEdge{Target: from, Type: edge.Type})
		}
	}

	type frontier struct {
		id   int64
		hops int
		path string
	}
	visited := make(map[int64]bool, len(seedIDs))
	queue := make([]frontier, 0, len(seedIDs))
	for _, id := range seedIDs {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		visited[id] = true
		queue = append(queue, frontier{id: id, path: PathLabel(rec)})
	}

	neighbors := make([]GraphNeighbor, 0)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.hops >= maxHops {
			continue
		}
		for _, edge := range adjacency[cur.id] {
			if visited[edge.Target] {
				continue
			}
			rec, ok := s.records[edge.Target]
			if !ok {
				continue
			}
			visited[edge.Target] = true
			path := fmt.Sprintf("%s -%s-> %s", cur.path, edge.Type, PathLabel(rec))
			neighbors = append(neighbors, GraphNeighbor{Record: rec, Hops: cur.hops + 1, Path: path})
			queue = append(queue, frontier{id: edge.Target, hops: cur.hops + 1, path: path})
		}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Hops != neighbors[j].Hops {
			return neighbors[i].Hops < neighbors[j].Hops
		}
		return neighbors[i].Record.CreatedAt.After(neighbors[j].Record.CreatedAt)
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

func (s *InMemoryStore) GetMemories(_ context.Context, ids []int64) (map[int64]model.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]model.MemoryRecord, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *InMemoryStore) Close() error { return nil }
