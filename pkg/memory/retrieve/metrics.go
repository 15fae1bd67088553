package retrieve

import "sync/atomic"

// Metrics captures lightweight runtime counters for observability.
type Metrics struct {
	queries        atomic.Int64
	cacheHits      atomic.Int64
	sourceFailures atomic.Int64
	filteredHits   atomic.Int64
	results        atomic.Int64
}

func (m *Metrics) IncQueries()           { m.queries.Add(1) }
func (m *Metrics) IncCacheHits()         { m.cacheHits.Add(1) }
func (m *Metrics) IncSourceFailures()    { m.sourceFailures.Add(1) }
func (m *Metrics) AddFilteredHits(n int) { m.filteredHits.Add(int64(n)) }
func (m *Metrics) AddResults(n int)      { m.results.Add(int64(n)) }

// MetricsSnapshot holds the current values for reporting.
type MetricsSnapshot struct {
	Queries        int64 `json:"queries"`
	CacheHits      int64 `json:"cache_hits"`
	SourceFailures int64 `json:"source_failures"`
	FilteredHits   int64 `json:"filtered_hits"`
	Results        int64 `json:"results"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Queries:        m.queries.Load(),
		CacheHits:      m.cacheHits.Load(),
		SourceFailures: m.sourceFailures.Load(),
		FilteredHits:   m.filteredHits.Load(),
		Results:        m.results.Load(),
	}
}
