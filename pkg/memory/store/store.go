package store

import (
	"context"
	"errors"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

// ErrDuplicateContent is returned by PutMemory when a record with the same
// content hash already exists.
var ErrDuplicateContent = errors.New("memory with identical content already stored")

// FieldMatch is one structured-lookup result: the record, the dynamic field
// (or builtin column) that matched, and whether the match was exact.
type FieldMatch struct {
	Record model.MemoryRecord
	Field  string
	Exact  bool

	// FieldConfidence is the extraction confidence recorded for the field
	// when the memory was stored; 0 means the backend has no value.
	FieldConfidence float64
}

// GraphNeighbor is one graph-traversal result with its hop distance from the
// nearest seed and a human-readable path description.
type GraphNeighbor struct {
	Record model.MemoryRecord
	Hops   int
	Path   string
}

// StructuredIndex answers field-level lookups over dynamic fields and the
// title/content columns.
type StructuredIndex interface {
	SearchFields(ctx context.Context, terms []string, limit int) ([]FieldMatch, error)
}

// VectorStore answers nearest-neighbor queries. Record.Score carries the
// cosine similarity in [0, 1].
type VectorStore interface {
	SearchByVector(ctx context.Context, queryEmbedding []float32, limit int) ([]model.MemoryRecord, error)
}

// GraphStore resolves seed memories from query terms and expands their
// neighborhood up to maxHops away.
type GraphStore interface {
	Seeds(ctx context.Context, terms []string, limit int) ([]int64, error)
	Neighborhood(ctx context.Context, seedIDs []int64, maxHops, limit int) ([]GraphNeighbor, error)
}

// MemoryWriter ingests new memories together with their outgoing edges.
type MemoryWriter interface {
	PutMemory(ctx context.Context, rec model.MemoryRecord, edges []model.GraphEdge) (int64, error)
}

// RecordFetcher resolves record bodies for result assembly.
type RecordFetcher interface {
	GetMemories(ctx context.Context, ids []int64) (map[int64]model.MemoryRecord, error)
}

// Backend is the full contract a storage implementation offers the engine.
type Backend interface {
	StructuredIndex
	VectorStore
	GraphStore
	MemoryWriter
	RecordFetcher
	Count(ctx context.Context) (int, error)
	Close() error
}

// SchemaInitializer is implemented by backends with a bootstrap step.
type SchemaInitializer interface {
	CreateSchema(ctx context.Context) error
}
