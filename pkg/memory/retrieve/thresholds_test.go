package retrieve

import (
	"testing"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

func TestSelectThresholdsPriorityOrder(t *testing.T) {
	cases := []struct {
		name     string
		features QueryFeatures
		total    int
		want     model.ThresholdSet
	}{
		{
			name:     "exact terms win over everything",
			features: QueryFeatures{HasExactTerms: true, IsRelationship: true, IsBroad: true},
			total:    0,
			want:     model.ThresholdSet{Structured: 0.8, Semantic: 0.6, Relationship: 0.5},
		},
		{
			name:     "relationship before broad",
			features: QueryFeatures{IsRelationship: true, IsBroad: true},
			total:    100,
			want:     model.ThresholdSet{Structured: 0.3, Semantic: 0.4, Relationship: 0.7},
		},
		{
			name:     "broad before sparse",
			features: QueryFeatures{IsBroad: true},
			total:    2,
			want:     model.ThresholdSet{Structured: 0.2, Semantic: 0.3, Relationship: 0.4},
		},
		{
			name:     "sparse corpus widens",
			features: QueryFeatures{TokenCount: 4},
			total:    4,
			want:     model.ThresholdSet{Structured: 0.1, Semantic: 0.2, Relationship: 0.2},
		},
		{
			name:     "default",
			features: QueryFeatures{TokenCount: 4},
			total:    5,
			want:     model.ThresholdSet{Structured: 0.5, Semantic: 0.4, Relationship: 0.5},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SelectThresholds(tc.features, tc.total); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestApplyThresholdsDropsBelowCutoff(t *testing.T) {
	lists := map[model.SourceKind][]model.SourceHit{
		model.SourceSemantic: {
			{MemoryID: 1, Score: 0.9, Kind: model.SourceSemantic},
			{MemoryID: 2, Score: 0.4, Kind: model.SourceSemantic},
			{MemoryID: 3, Score: 0.39, Kind: model.SourceSemantic},
		},
		model.SourceStructured: {
			{MemoryID: 4, Score: 1.0, Kind: model.SourceStructured},
		},
	}
	filtered := ApplyThresholds(lists, model.ThresholdSet{Structured: 0.5, Semantic: 0.4, Relationship: 0.5})
	if len(filtered[model.SourceSemantic]) != 2 {
		t.Fatalf("expected 2 semantic hits to survive, got %d", len(filtered[model.SourceSemantic]))
	}
	if filtered[model.SourceSemantic][1].MemoryID != 2 {
		t.Fatalf("boundary score must be kept (>= cutoff)")
	}
	if len(filtered[model.SourceStructured]) != 1 {
		t.Fatalf("structured hit should survive")
	}
}
