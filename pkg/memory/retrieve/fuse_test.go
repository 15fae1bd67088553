package retrieve

import (
	"math"
	"testing"
	"time"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

func TestFuseAccumulatesAcrossSources(t *testing.T) {
	f := NewFuser(60)
	lists := map[model.SourceKind][]model.SourceHit{
		model.SourceStructured: {
			{MemoryID: 1, Score: 1.0, Kind: model.SourceStructured},
			{MemoryID: 2, Score: 0.7, Kind: model.SourceStructured},
		},
		model.SourceSemantic: {
			{MemoryID: 2, Score: 0.9, Kind: model.SourceSemantic},
			{MemoryID: 1, Score: 0.8, Kind: model.SourceSemantic},
		},
	}
	fused := f.Fuse(lists)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}

	// Both memories appear at ranks 1 and 2, so fused scores are equal:
	// 1/61 + 1/62 each.
	want := 1.0/61 + 1.0/62
	for _, cand := range fused {
		if math.Abs(cand.FusedScore-want) > 1e-12 {
			t.Fatalf("candidate %d fused score %v, want %v", cand.MemoryID, cand.FusedScore, want)
		}
		if len(cand.Hits) != 2 {
			t.Fatalf("candidate %d should carry both source hits", cand.MemoryID)
		}
	}
}

func TestFuseRankOverRawScore(t *testing.T) {
	f := NewFuser(60)
	lists := map[model.SourceKind][]model.SourceHit{
		model.SourceSemantic: {
			{MemoryID: 10, Score: 0.99, Kind: model.SourceSemantic},
			{MemoryID: 11, Score: 0.98, Kind: model.SourceSemantic},
		},
		model.SourceStructured: {
			{MemoryID: 11, Score: 0.7, Kind: model.SourceStructured},
		},
	}
	fused := f.Fuse(lists)
	if fused[0].MemoryID != 11 {
		t.Fatalf("memory in two lists should outrank a single-list memory, got %d first", fused[0].MemoryID)
	}
}

func TestFuseTieBreaksOnRecency(t *testing.T) {
	f := NewFuser(60)
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	lists := map[model.SourceKind][]model.SourceHit{
		model.SourceStructured: {
			{MemoryID: 1, Score: 1.0, Kind: model.SourceStructured, CreatedAt: older},
		},
		model.SourceSemantic: {
			{MemoryID: 2, Score: 0.9, Kind: model.SourceSemantic, CreatedAt: newer},
		},
	}
	fused := f.Fuse(lists)
	if fused[0].MemoryID != 2 {
		t.Fatalf("equal fused scores should rank the newer memory first, got %d", fused[0].MemoryID)
	}
}

func TestFuseDominantSource(t *testing.T) {
	f := NewFuser(60)
	lists := map[model.SourceKind][]model.SourceHit{
		model.SourceStructured: {
			{MemoryID: 1, Score: 1.0, Kind: model.SourceStructured},
		},
		model.SourceSemantic: {
			{MemoryID: 9, Score: 0.9, Kind: model.SourceSemantic},
			{MemoryID: 1, Score: 0.8, Kind: model.SourceSemantic},
		},
	}
	fused := f.Fuse(lists)
	for _, cand := range fused {
		if cand.MemoryID == 1 {
			// rank 1 structured (1/61) beats rank 2 semantic (1/62)
			if cand.DominantSource() != model.SourceStructured {
				t.Fatalf("dominant source should be structured, got %s", cand.DominantSource())
			}
		}
	}
}
