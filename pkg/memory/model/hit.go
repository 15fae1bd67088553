package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// SourceKind identifies one of the retrieval mechanisms.
type SourceKind string

const (
	SourceStructured   SourceKind = "structured"
	SourceSemantic     SourceKind = "semantic"
	SourceRelationship SourceKind = "relationship"
)

var validSourceKinds = map[SourceKind]struct{}{
	SourceStructured:   {},
	SourceSemantic:     {},
	SourceRelationship: {},
}

// Valid reports whether the kind is one of the three retrieval sources.
func (k SourceKind) Valid() bool {
	_, ok := validSourceKinds[k]
	return ok
}

// Structured match scores: an exact field match scores 1.0, a partial
// text match 0.7.
const (
	StructuredExactScore   = 1.0
	StructuredPartialScore = 0.7
)

// SourceHit is a transient, per-query hit produced by a single retriever.
// Hits are created per query execution and discarded after fusion; they are
// never persisted.
type SourceHit struct {
	MemoryID int64      `json:"memory_id"`
	Score    float64    `json:"score"`
	Kind     SourceKind `json:"kind"`

	// Structured hits: which field matched and how confident the field
	// extraction was when the record was stored.
	MatchedField    string  `json:"matched_field,omitempty"`
	FieldConfidence float64 `json:"field_confidence,omitempty"`

	// Relationship hits: hop distance (1 = direct relation) and a short
	// description of the traversed path.
	HopCount int    `json:"hop_count,omitempty"`
	Path     string `json:"path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate rejects hits that fusion and scoring cannot process safely.
func (h SourceHit) Validate() error {
	if h.MemoryID == 0 {
		return errors.New("hit has no memory identifier")
	}
	if !h.Kind.Valid() {
		return fmt.Errorf("unknown source kind %q", h.Kind)
	}
	if math.IsNaN(h.Score) || math.IsInf(h.Score, 0) {
		return fmt.Errorf("hit for memory %d has non-finite score", h.MemoryID)
	}
	if h.Score < 0 {
		return fmt.Errorf("hit for memory %d has negative score %.3f", h.MemoryID, h.Score)
	}
	if h.Kind == SourceRelationship && h.HopCount <= 0 {
		return fmt.Errorf("relationship hit for memory %d has no hop count", h.MemoryID)
	}
	return nil
}

// FusedResult is the output unit of the retrieval pipeline: one unique
// memory with its fused rank score, calibrated confidence and contributing
// source tags. Immutable once assembled; not cached across queries.
type FusedResult struct {
	MemoryID        int64        `json:"memory_id"`
	FusedScore      float64      `json:"fused_score"`
	Confidence      float64      `json:"confidence"`
	Sources         []SourceKind `json:"sources"`
	SourceDiversity int          `json:"source_diversity"`
	Explanation     string       `json:"explanation"`
	Title           string       `json:"title,omitempty"`
	Snippet         string       `json:"snippet,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// ThresholdSet holds the per-source minimum raw scores for one query. It is
// valid only for the query that produced it.
type ThresholdSet struct {
	Structured   float64 `json:"structured"`
	Semantic     float64 `json:"semantic"`
	Relationship float64 `json:"relationship"`
}

// For returns the cutoff for the given source kind.
func (t ThresholdSet) For(kind SourceKind) float64 {
	switch kind {
	case SourceStructured:
		return t.Structured
	case SourceSemantic:
		return t.Semantic
	case SourceRelationship:
		return t.Relationship
	}
	return 0
}
