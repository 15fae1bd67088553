package retrieve

import (
	"context"
	"fmt"

	"github.com/jxitc/info-agent-sub000/pkg/memory/embed"
	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

// Retriever is the common contract of the three sources: query and cap in,
// hits out in descending raw-score order, unfiltered. Retrievers never
// depend on each other's output.
type Retriever interface {
	Kind() model.SourceKind
	Retrieve(ctx context.Context, query string, limit int) ([]model.SourceHit, error)
}

// StructuredRetriever answers exact and partial field lookups. Exact field
// matches score 1.0, partial text matches 0.7.
type StructuredRetriever struct {
	index store.StructuredIndex
}

func NewStructuredRetriever(index store.StructuredIndex) *StructuredRetriever {
	return &StructuredRetriever{index: index}
}

func (r *StructuredRetriever) Kind() model.SourceKind { return model.SourceStructured }

func (r *StructuredRetriever) Retrieve(ctx context.Context, query string, limit int) ([]model.SourceHit, error) {
	if r.index == nil {
		return nil, fmt.Errorf("structured: %w", ErrSourceUnavailable)
	}
	matches, err := r.index.SearchFields(ctx, Tokenize(query), limit)
	if err != nil {
		return nil, fmt.Errorf("structured: %w: %v", ErrSourceUnavailable, err)
	}
	hits := make([]model.SourceHit, 0, len(matches))
	for _, m := range matches {
		score := model.StructuredPartialScore
		if m.Exact {
			score = model.StructuredExactScore
		}
		hits = append(hits, model.SourceHit{
			MemoryID:        m.Record.ID,
			Score:           score,
			Kind:            model.SourceStructured,
			MatchedField:    m.Field,
			FieldConfidence: m.FieldConfidence,
			CreatedAt:       m.Record.CreatedAt,
		})
	}
	sortHitsByScore(hits)
	return hits, nil
}

// SemanticRetriever embeds the query and runs nearest-neighbor search.
// Scores are cosine similarity in [0,1].
type SemanticRetriever struct {
	embedder embed.Embedder
	vectors  store.VectorStore
}

func NewSemanticRetriever(embedder embed.Embedder, vectors store.VectorStore) *SemanticRetriever {
	return &SemanticRetriever{embedder: embedder, vectors: vectors}
}

func (r *SemanticRetriever) Kind() model.SourceKind { return model.SourceSemantic }

func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, limit int) ([]model.SourceHit, error) {
	if r.vectors == nil || r.embedder == nil {
		return nil, fmt.Errorf("semantic: %w", ErrSourceUnavailable)
	}
	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("semantic: %w: embed: %v", ErrSourceUnavailable, err)
	}
	records, err := r.vectors.SearchByVector(ctx, queryEmbedding, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic: %w: %v", ErrSourceUnavailable, err)
	}
	hits := make([]model.SourceHit, 0, len(records))
	for _, rec := range records {
		hits = append(hits, model.SourceHit{
			MemoryID:  rec.ID,
			Score:     rec.Score,
			Kind:      model.SourceSemantic,
			CreatedAt: rec.CreatedAt,
		})
	}
	sortHitsByScore(hits)
	return hits, nil
}

// RelationshipRetriever resolves seed memories from the query on its own,
// then expands their graph neighborhood. A direct relation scores 1.0 and
// each extra hop costs 0.2.
type RelationshipRetriever struct {
	graph   store.GraphStore
	maxHops int
	seedCap int
}

func NewRelationshipRetriever(graph store.GraphStore, maxHops, seedCap int) *RelationshipRetriever {
	if maxHops <= 0 {
		maxHops = 2
	}
	if seedCap <= 0 {
		seedCap = 5
	}
	return &RelationshipRetriever{graph: graph, maxHops: maxHops, seedCap: seedCap}
}

func (r *RelationshipRetriever) Kind() model.SourceKind { return model.SourceRelationship }

// HopScore converts a hop distance into the raw relationship score.
func HopScore(hops int) float64 {
	if hops <= 0 {
		return 0
	}
	score := 1.0 - 0.2*float64(hops-1)
	if score < 0 {
		return 0
	}
	return score
}

func (r *RelationshipRetriever) Retrieve(ctx context.Context, query string, limit int) ([]model.SourceHit, error) {
	if r.graph == nil {
		return nil, fmt.Errorf("relationship: %w", ErrSourceUnavailable)
	}
	seeds, err := r.graph.Seeds(ctx, Tokenize(query), r.seedCap)
	if err != nil {
		return nil, fmt.Errorf("relationship: %w: seeds: %v", ErrSourceUnavailable, err)
	}
	if len(seeds) == 0 {
		return nil, nil
	}
	neighbors, err := r.graph.Neighborhood(ctx, seeds, r.maxHops, limit)
	if err != nil {
		return nil, fmt.Errorf("relationship: %w: %v", ErrSourceUnavailable, err)
	}
	hits := make([]model.SourceHit, 0, len(neighbors))
	for _, n := range neighbors {
		hits = append(hits, model.SourceHit{
			MemoryID:  n.Record.ID,
			Score:     HopScore(n.Hops),
			Kind:      model.SourceRelationship,
			HopCount:  n.Hops,
			Path:      n.Path,
			CreatedAt: n.Record.CreatedAt,
		})
	}
	sortHitsByScore(hits)
	return hits, nil
}
