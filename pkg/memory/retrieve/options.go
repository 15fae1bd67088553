package retrieve

import (
	"log"
	"time"
)

// Options configures the retrieval engine. Zero values fall back to the
// recommended defaults, so callers only set what they want to change.
type Options struct {
	// RRFK is the reciprocal-rank-fusion smoothing constant.
	RRFK float64

	// Weights blend the confidence signals.
	Weights ConfidenceWeights

	// HalfLife controls the recency decay of the confidence scorer.
	HalfLife time.Duration

	// SourceTimeout bounds each retriever; a slow source degrades into an
	// empty list instead of blocking the query.
	SourceTimeout time.Duration

	// MaxHops caps relationship traversal depth.
	MaxHops int

	// SeedLimit caps how many seed memories the relationship retriever
	// resolves before expanding.
	SeedLimit int

	// SourceCap is the per-source raw result cap handed to retrievers;
	// 0 derives it from the requested result count.
	SourceCap int

	// PreviewLength bounds result snippets.
	PreviewLength int

	// RelationshipPhrases configures the default keyword matcher;
	// Matcher overrides it entirely.
	RelationshipPhrases []string
	Matcher             RelationshipMatcher

	// CacheSize > 0 memoizes assembled results at the query boundary for
	// CacheTTL.
	CacheSize int
	CacheTTL  time.Duration

	Clock  func() time.Time
	Logger *log.Logger
}

func DefaultOptions() Options {
	return Options{
		RRFK:          DefaultRRFK,
		Weights:       DefaultConfidenceWeights(),
		HalfLife:      30 * 24 * time.Hour,
		SourceTimeout: 3 * time.Second,
		MaxHops:       2,
		SeedLimit:     5,
		PreviewLength: 100,
		CacheTTL:      time.Minute,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.RRFK <= 0 {
		o.RRFK = defaults.RRFK
	}
	if (o.Weights == ConfidenceWeights{}) {
		o.Weights = defaults.Weights
	}
	if o.HalfLife <= 0 {
		o.HalfLife = defaults.HalfLife
	}
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = defaults.SourceTimeout
	}
	if o.MaxHops <= 0 {
		o.MaxHops = defaults.MaxHops
	}
	if o.SeedLimit <= 0 {
		o.SeedLimit = defaults.SeedLimit
	}
	if o.PreviewLength <= 0 {
		o.PreviewLength = defaults.PreviewLength
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaults.CacheTTL
	}
	if o.Matcher == nil {
		o.Matcher = NewKeywordMatcher(o.RelationshipPhrases)
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
