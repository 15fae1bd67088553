package retrieve

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jxitc/info-agent-sub000/pkg/cache"
	"github.com/jxitc/info-agent-sub000/pkg/concurrent"
	"github.com/jxitc/info-agent-sub000/pkg/memory/embed"
	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

// Engine runs the full retrieval pipeline: characterize, route, fan out to
// the active sources, filter by adaptive thresholds, fuse, score, assemble.
// The engine never mutates memory records and is safe for concurrent use.
type Engine struct {
	opts          Options
	characterizer *Characterizer
	retrievers    map[model.SourceKind]Retriever
	fuser         Fuser
	scorer        Scorer
	assembler     Assembler
	results       *cache.LRUCache
	metrics       *Metrics
	logger        *log.Logger
}

// NewEngine wires the three retrievers to a storage backend.
func NewEngine(backend store.Backend, embedder embed.Embedder, opts Options) *Engine {
	opts = opts.withDefaults()
	retrievers := []Retriever{
		NewStructuredRetriever(backend),
		NewSemanticRetriever(embedder, backend),
		NewRelationshipRetriever(backend, opts.MaxHops, opts.SeedLimit),
	}
	return NewEngineWithRetrievers(retrievers, backend, opts)
}

// NewEngineWithRetrievers accepts pre-built retrievers; summaries may be
// nil, in which case results carry no title or snippet.
func NewEngineWithRetrievers(retrievers []Retriever, summaries store.RecordFetcher, opts Options) *Engine {
	opts = opts.withDefaults()
	byKind := make(map[model.SourceKind]Retriever, len(retrievers))
	for _, r := range retrievers {
		byKind[r.Kind()] = r
	}
	e := &Engine{
		opts:          opts,
		characterizer: NewCharacterizer(opts.Matcher),
		retrievers:    byKind,
		fuser:         NewFuser(opts.RRFK),
		scorer:        NewScorer(opts.Weights, opts.HalfLife, opts.Clock),
		assembler:     NewAssembler(summaries, opts.PreviewLength),
		metrics:       &Metrics{},
		logger:        opts.Logger,
	}
	if e.logger == nil {
		e.logger = log.New(os.Stderr, "[retrieve] ", log.LstdFlags)
	}
	if opts.CacheSize > 0 {
		e.results = cache.NewLRUCache(opts.CacheSize, opts.CacheTTL)
	}
	return e
}

// WithLogger replaces the engine logger; nil silences it.
func (e *Engine) WithLogger(logger *log.Logger) *Engine {
	e.logger = logger
	return e
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() MetricsSnapshot { return e.metrics.Snapshot() }

// Retrieve executes one query. forceSources activates sources the router
// would otherwise skip. Results come back ordered by descending confidence.
func (e *Engine) Retrieve(ctx context.Context, query string, maxResults int, forceSources ...model.SourceKind) ([]model.FusedResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query string", ErrInvalidQuery)
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	e.metrics.IncQueries()
	qid := uuid.NewString()[:8]

	features := e.characterizer.Characterize(query)
	active := Route(features, forceSources)

	cacheKey := ""
	if e.results != nil {
		cacheKey = cache.HashKey(fmt.Sprintf("%s|%d|%v", query, maxResults, active))
		if cached, ok := e.results.Get(cacheKey); ok {
			e.metrics.IncCacheHits()
			return append([]model.FusedResult(nil), cached.([]model.FusedResult)...), nil
		}
	}

	sourceCap := e.opts.SourceCap
	if sourceCap <= 0 {
		sourceCap = maxResults * 3
		if sourceCap < 10 {
			sourceCap = 10
		}
	}

	activeRetrievers := make([]Retriever, 0, len(active))
	for _, kind := range active {
		if r, ok := e.retrievers[kind]; ok {
			activeRetrievers = append(activeRetrievers, r)
		}
	}

	hitLists, errs := concurrent.ParallelMap(ctx, activeRetrievers, func(r Retriever) ([]model.SourceHit, error) {
		sctx, cancel := context.WithTimeout(ctx, e.opts.SourceTimeout)
		defer cancel()
		return r.Retrieve(sctx, query, sourceCap)
	}, len(activeRetrievers))

	lists := make(map[model.SourceKind][]model.SourceHit, len(activeRetrievers))
	failures := 0
	for i, r := range activeRetrievers {
		if errs[i] != nil {
			failures++
			e.metrics.IncSourceFailures()
			e.logf("[%s] source %s degraded: %v", qid, r.Kind(), errs[i])
			lists[r.Kind()] = nil
			continue
		}
		lists[r.Kind()] = hitLists[i]
	}
	if failures > 0 && failures == len(activeRetrievers) {
		return nil, pipelineErr("retrieving", active, ErrAllSourcesUnavailable)
	}

	totalRaw := 0
	for _, hits := range lists {
		for _, hit := range hits {
			if err := hit.Validate(); err != nil {
				return nil, pipelineErr("filtering", active, fmt.Errorf("%w: %v", ErrMalformedHit, err))
			}
		}
		totalRaw += len(hits)
	}

	thresholds := SelectThresholds(features, totalRaw)
	filtered := ApplyThresholds(lists, thresholds)
	kept := 0
	for _, hits := range filtered {
		kept += len(hits)
	}
	e.metrics.AddFilteredHits(totalRaw - kept)

	candidates := e.fuser.Fuse(filtered)
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		scored = append(scored, ScoredCandidate{Candidate: cand, Confidence: e.scorer.Score(cand)})
	}
	sortByConfidence(scored)

	results, err := e.assembler.Assemble(ctx, scored, maxResults)
	if err != nil {
		return nil, pipelineErr("assembling", active, err)
	}
	e.metrics.AddResults(len(results))
	e.logf("[%s] query %q: sources=%v raw=%d kept=%d returned=%d",
		qid, query, active, totalRaw, kept, len(results))

	if e.results != nil {
		e.results.Set(cacheKey, append([]model.FusedResult(nil), results...))
	}
	return results, nil
}

// sortByConfidence orders candidates by confidence, breaking ties by fused
// score, then recency, then id for determinism.
func sortByConfidence(scored []ScoredCandidate) {
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.MemoryID < b.MemoryID
	})
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}
