package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

// ScoredCandidate pairs a fused candidate with its final confidence.
type ScoredCandidate struct {
	Candidate
	Confidence float64
}

// Assembler turns scored candidates into the caller-facing results:
// dedupe by memory identity, count source diversity, enrich with a title
// and snippet when a record fetcher is available, truncate to the request.
type Assembler struct {
	summaries  store.RecordFetcher
	previewLen int
}

func NewAssembler(summaries store.RecordFetcher, previewLen int) Assembler {
	if previewLen <= 0 {
		previewLen = 100
	}
	return Assembler{summaries: summaries, previewLen: previewLen}
}

func (a Assembler) Assemble(ctx context.Context, scored []ScoredCandidate, limit int) ([]model.FusedResult, error) {
	if limit <= 0 || len(scored) == 0 {
		return []model.FusedResult{}, nil
	}

	// Fusion already yields unique ids; the seen set is a safety net.
	seen := make(map[int64]bool, len(scored))
	picked := make([]ScoredCandidate, 0, limit)
	for _, cand := range scored {
		if seen[cand.MemoryID] {
			continue
		}
		seen[cand.MemoryID] = true
		picked = append(picked, cand)
		if len(picked) == limit {
			break
		}
	}

	var records map[int64]model.MemoryRecord
	if a.summaries != nil {
		ids := make([]int64, len(picked))
		for i, cand := range picked {
			ids[i] = cand.MemoryID
		}
		var err error
		records, err = a.summaries.GetMemories(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("fetch summaries: %w", err)
		}
	}

	results := make([]model.FusedResult, 0, len(picked))
	for _, cand := range picked {
		result := model.FusedResult{
			MemoryID:        cand.MemoryID,
			FusedScore:      cand.FusedScore,
			Confidence:      cand.Confidence,
			Sources:         cand.Sources(),
			SourceDiversity: len(cand.Hits),
			Explanation:     explain(cand.Candidate),
			CreatedAt:       cand.CreatedAt,
		}
		if rec, ok := records[cand.MemoryID]; ok {
			result.Title = rec.Title
			result.Snippet = rec.Preview(a.previewLen)
			if result.CreatedAt.IsZero() {
				result.CreatedAt = rec.CreatedAt
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// explain renders a short human-readable account of the contributing
// signals, e.g. "matched exact value in field 'date'; semantic similarity
// 0.83".
func explain(cand Candidate) string {
	parts := make([]string, 0, len(cand.Hits))
	if hit, ok := cand.Hits[model.SourceStructured]; ok {
		kind := "partial text"
		if hit.Score >= model.StructuredExactScore {
			kind = "exact value"
		}
		if hit.MatchedField != "" {
			parts = append(parts, fmt.Sprintf("matched %s in field %q", kind, hit.MatchedField))
		} else {
			parts = append(parts, fmt.Sprintf("matched %s", kind))
		}
	}
	if hit, ok := cand.Hits[model.SourceSemantic]; ok {
		parts = append(parts, fmt.Sprintf("semantic similarity %.2f", hit.Score))
	}
	if hit, ok := cand.Hits[model.SourceRelationship]; ok {
		hops := "1 hop"
		if hit.HopCount != 1 {
			hops = fmt.Sprintf("%d hops", hit.HopCount)
		}
		if hit.Path != "" {
			parts = append(parts, fmt.Sprintf("related within %s (%s)", hops, hit.Path))
		} else {
			parts = append(parts, fmt.Sprintf("related within %s", hops))
		}
	}
	if len(parts) == 0 {
		return "no contributing signals"
	}
	return strings.Join(parts, "; ")
}
