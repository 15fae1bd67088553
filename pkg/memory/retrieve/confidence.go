package retrieve

import (
	"math"
	"time"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

// neutralSignal stands in for any signal a candidate simply does not have,
// so absence never penalizes a result that scored well elsewhere.
const neutralSignal = 0.5

// ConfidenceWeights are the blend coefficients of the final score. They are
// passed in at construction so alternative weightings can be evaluated side
// by side.
type ConfidenceWeights struct {
	Semantic     float64
	ExactMatch   float64
	Recency      float64
	Centrality   float64
	Relationship float64
	Entity       float64
	Reliability  float64
}

func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		Semantic:     0.25,
		ExactMatch:   0.20,
		Recency:      0.15,
		Centrality:   0.15,
		Relationship: 0.10,
		Entity:       0.10,
		Reliability:  0.05,
	}
}

// sourceReliability maps each source to its fixed trust constant.
func sourceReliability(kind model.SourceKind) float64 {
	switch kind {
	case model.SourceStructured:
		return 1.0
	case model.SourceRelationship:
		return 0.9
	case model.SourceSemantic:
		return 0.8
	}
	return neutralSignal
}

// Scorer turns a fused candidate into a calibrated [0,1] confidence.
type Scorer struct {
	weights  ConfidenceWeights
	halfLife time.Duration
	clock    func() time.Time
}

func NewScorer(weights ConfidenceWeights, halfLife time.Duration, clock func() time.Time) Scorer {
	zero := ConfidenceWeights{}
	if weights == zero {
		weights = DefaultConfidenceWeights()
	}
	if halfLife <= 0 {
		halfLife = 30 * 24 * time.Hour
	}
	if clock == nil {
		clock = time.Now
	}
	return Scorer{weights: weights, halfLife: halfLife, clock: clock}
}

// Score blends the candidate's signals with the configured weights. Signals
// the candidate lacks contribute the neutral midpoint.
func (s Scorer) Score(cand Candidate) float64 {
	semantic := neutralSignal
	if hit, ok := cand.Hits[model.SourceSemantic]; ok {
		semantic = hit.Score
	}

	exact := neutralSignal
	entity := neutralSignal
	if hit, ok := cand.Hits[model.SourceStructured]; ok {
		exact = hit.Score
		if hit.FieldConfidence > 0 {
			entity = hit.FieldConfidence
		}
	}

	centrality := neutralSignal
	relationship := neutralSignal
	if hit, ok := cand.Hits[model.SourceRelationship]; ok {
		if hit.HopCount > 0 {
			centrality = 1.0 / float64(hit.HopCount)
		}
		relationship = hit.Score
	}

	recency := s.RecencyFactor(cand.CreatedAt)
	reliability := sourceReliability(cand.DominantSource())

	confidence := s.weights.Semantic*semantic +
		s.weights.ExactMatch*exact +
		s.weights.Recency*recency +
		s.weights.Centrality*centrality +
		s.weights.Relationship*relationship +
		s.weights.Entity*entity +
		s.weights.Reliability*reliability

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// RecencyFactor decays with age by half-life: a memory created one
// half-life ago contributes 0.5, two half-lives 0.25.
func (s Scorer) RecencyFactor(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return neutralSignal
	}
	age := s.clock().Sub(createdAt)
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, age.Hours()/s.halfLife.Hours())
}
