package retrieve

import "github.com/jxitc/info-agent-sub000/pkg/memory/model"

// SelectThresholds computes the per-source cutoffs for one query. The rules
// are priority ordered; the first match wins.
func SelectThresholds(features QueryFeatures, totalRawHits int) model.ThresholdSet {
	switch {
	case features.HasExactTerms:
		return model.ThresholdSet{Structured: 0.8, Semantic: 0.6, Relationship: 0.5}
	case features.IsRelationship:
		return model.ThresholdSet{Structured: 0.3, Semantic: 0.4, Relationship: 0.7}
	case features.IsBroad:
		return model.ThresholdSet{Structured: 0.2, Semantic: 0.3, Relationship: 0.4}
	case totalRawHits < 5:
		// Sparse corpus: widen the net instead of returning nothing.
		return model.ThresholdSet{Structured: 0.1, Semantic: 0.2, Relationship: 0.2}
	default:
		return model.ThresholdSet{Structured: 0.5, Semantic: 0.4, Relationship: 0.5}
	}
}

// ApplyThresholds drops every hit scoring below its source's cutoff,
// preserving order.
func ApplyThresholds(lists map[model.SourceKind][]model.SourceHit, thresholds model.ThresholdSet) map[model.SourceKind][]model.SourceHit {
	filtered := make(map[model.SourceKind][]model.SourceHit, len(lists))
	for kind, hits := range lists {
		cutoff := thresholds.For(kind)
		kept := make([]model.SourceHit, 0, len(hits))
		for _, hit := range hits {
			if hit.Score >= cutoff {
				kept = append(kept, hit)
			}
		}
		filtered[kind] = kept
	}
	return filtered
}
