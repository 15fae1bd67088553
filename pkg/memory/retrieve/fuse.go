package retrieve

import (
	"sort"
	"time"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

// DefaultRRFK is the standard reciprocal-rank-fusion smoothing constant:
// large enough that a rank-1 hit from a noisy source cannot dominate.
const DefaultRRFK = 60.0

// Candidate is one fused memory with everything the confidence scorer
// needs: the per-source hits it appeared in and each source's share of the
// fused score.
type Candidate struct {
	MemoryID      int64
	FusedScore    float64
	CreatedAt     time.Time
	Hits          map[model.SourceKind]model.SourceHit
	Contributions map[model.SourceKind]float64
}

// Sources returns the contributing source kinds in a stable order.
func (c Candidate) Sources() []model.SourceKind {
	kinds := make([]model.SourceKind, 0, len(c.Hits))
	for _, kind := range []model.SourceKind{model.SourceStructured, model.SourceSemantic, model.SourceRelationship} {
		if _, ok := c.Hits[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// DominantSource is the source that contributed the most fused score.
func (c Candidate) DominantSource() model.SourceKind {
	var best model.SourceKind
	bestShare := -1.0
	for _, kind := range c.Sources() {
		if share := c.Contributions[kind]; share > bestShare {
			best, bestShare = kind, share
		}
	}
	return best
}

// Fuser merges per-source ranked lists with reciprocal rank fusion: each
// hit contributes 1/(K+rank) to its memory's fused score. Pure arithmetic,
// no learned parameters.
type Fuser struct {
	K float64
}

func NewFuser(k float64) Fuser {
	if k <= 0 {
		k = DefaultRRFK
	}
	return Fuser{K: k}
}

// Fuse expects each list already sorted descending by raw score. Ties on
// fused score break toward the newer memory.
func (f Fuser) Fuse(lists map[model.SourceKind][]model.SourceHit) []Candidate {
	byID := make(map[int64]*Candidate)
	for kind, hits := range lists {
		for i, hit := range hits {
			contribution := 1.0 / (f.K + float64(i+1))
			cand, ok := byID[hit.MemoryID]
			if !ok {
				cand = &Candidate{
					MemoryID:      hit.MemoryID,
					Hits:          make(map[model.SourceKind]model.SourceHit, 3),
					Contributions: make(map[model.SourceKind]float64, 3),
				}
				byID[hit.MemoryID] = cand
			}
			cand.FusedScore += contribution
			cand.Contributions[kind] += contribution
			cand.Hits[kind] = hit
			if hit.CreatedAt.After(cand.CreatedAt) {
				cand.CreatedAt = hit.CreatedAt
			}
		}
	}

	fused := make([]Candidate, 0, len(byID))
	for _, cand := range byID {
		fused = append(fused, *cand)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		if !fused[i].CreatedAt.Equal(fused[j].CreatedAt) {
			return fused[i].CreatedAt.After(fused[j].CreatedAt)
		}
		return fused[i].MemoryID < fused[j].MemoryID
	})
	return fused
}

func sortHitsByScore(hits []model.SourceHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].CreatedAt.After(hits[j].CreatedAt)
	})
}
