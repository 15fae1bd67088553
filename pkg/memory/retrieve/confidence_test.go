package retrieve

import (
	"math"
	"testing"
	"time"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestScoreStaysInUnitInterval(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewScorer(ConfidenceWeights{}, 0, fixedClock(now))

	full := Candidate{
		MemoryID:  1,
		CreatedAt: now,
		Hits: map[model.SourceKind]model.SourceHit{
			model.SourceStructured:   {MemoryID: 1, Score: 1.0, Kind: model.SourceStructured, FieldConfidence: 1.0},
			model.SourceSemantic:     {MemoryID: 1, Score: 1.0, Kind: model.SourceSemantic},
			model.SourceRelationship: {MemoryID: 1, Score: 1.0, Kind: model.SourceRelationship, HopCount: 1},
		},
		Contributions: map[model.SourceKind]float64{model.SourceStructured: 1},
	}
	if got := s.Score(full); got < 0 || got > 1 {
		t.Fatalf("confidence %v outside [0,1]", got)
	}

	empty := Candidate{MemoryID: 2, Hits: map[model.SourceKind]model.SourceHit{}, Contributions: map[model.SourceKind]float64{}}
	if got := s.Score(empty); got < 0 || got > 1 {
		t.Fatalf("confidence %v outside [0,1]", got)
	}
}

func TestScoreMissingSignalsAreNeutral(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewScorer(ConfidenceWeights{}, 0, fixedClock(now))

	semanticOnly := Candidate{
		MemoryID:  1,
		CreatedAt: now,
		Hits: map[model.SourceKind]model.SourceHit{
			model.SourceSemantic: {MemoryID: 1, Score: 0.8, Kind: model.SourceSemantic},
		},
		Contributions: map[model.SourceKind]float64{model.SourceSemantic: 1},
	}
	// 0.25*0.8 + 0.20*0.5 + 0.15*1 + 0.15*0.5 + 0.10*0.5 + 0.10*0.5 + 0.05*0.8
	want := 0.25*0.8 + 0.20*0.5 + 0.15*1 + 0.15*0.5 + 0.10*0.5 + 0.10*0.5 + 0.05*0.8
	if got := s.Score(semanticOnly); math.Abs(got-want) > 1e-12 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestScoreHopCountLowersCentrality(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewScorer(ConfidenceWeights{}, 0, fixedClock(now))

	oneHop := Candidate{
		MemoryID:  1,
		CreatedAt: now,
		Hits: map[model.SourceKind]model.SourceHit{
			model.SourceRelationship: {MemoryID: 1, Score: 1.0, Kind: model.SourceRelationship, HopCount: 1},
		},
		Contributions: map[model.SourceKind]float64{model.SourceRelationship: 1},
	}
	twoHop := Candidate{
		MemoryID:  2,
		CreatedAt: now,
		Hits: map[model.SourceKind]model.SourceHit{
			model.SourceRelationship: {MemoryID: 2, Score: 0.8, Kind: model.SourceRelationship, HopCount: 2},
		},
		Contributions: map[model.SourceKind]float64{model.SourceRelationship: 1},
	}
	if s.Score(oneHop) <= s.Score(twoHop) {
		t.Fatalf("a direct relation must score higher than a two-hop path")
	}
}

func TestRecencyHalfLifeDecay(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	halfLife := 30 * 24 * time.Hour
	s := NewScorer(ConfidenceWeights{}, halfLife, fixedClock(now))

	if got := s.RecencyFactor(now); got != 1 {
		t.Fatalf("fresh memory should score 1, got %v", got)
	}
	if got := s.RecencyFactor(now.Add(-halfLife)); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("one half-life should score 0.5, got %v", got)
	}
	if got := s.RecencyFactor(now.Add(-2 * halfLife)); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("two half-lives should score 0.25, got %v", got)
	}
	if got := s.RecencyFactor(time.Time{}); got != neutralSignal {
		t.Fatalf("unknown timestamp should be neutral, got %v", got)
	}
}

func TestHopScore(t *testing.T) {
	if HopScore(1) != 1.0 {
		t.Fatalf("direct relation should score 1.0")
	}
	if math.Abs(HopScore(2)-0.8) > 1e-12 {
		t.Fatalf("two hops should score 0.8, got %v", HopScore(2))
	}
	if HopScore(7) != 0 {
		t.Fatalf("deep paths floor at 0, got %v", HopScore(7))
	}
	if HopScore(0) != 0 {
		t.Fatalf("zero hops is invalid and scores 0")
	}
}
