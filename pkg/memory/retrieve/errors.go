package retrieve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

var (
	// ErrInvalidQuery rejects empty or unparseable queries before the
	// pipeline starts.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrSourceUnavailable marks a single retriever failure. It is absorbed
	// by the pipeline: the source is treated as empty and a warning is
	// logged.
	ErrSourceUnavailable = errors.New("retrieval source unavailable")

	// ErrAllSourcesUnavailable is fatal: every active retriever failed.
	ErrAllSourcesUnavailable = errors.New("all retrieval sources unavailable")

	// ErrMalformedHit aborts a query whose retriever output cannot be fused
	// or scored safely.
	ErrMalformedHit = errors.New("malformed source hit")
)

// PipelineError carries enough context to distinguish a transient outage
// from a configuration problem: the stage that failed and the sources that
// were active when it did.
type PipelineError struct {
	Stage   string
	Sources []model.SourceKind
	Err     error
}

func (e *PipelineError) Error() string {
	names := make([]string, len(e.Sources))
	for i, s := range e.Sources {
		names[i] = string(s)
	}
	return fmt.Sprintf("retrieval pipeline failed at %s (active sources: %s): %v",
		e.Stage, strings.Join(names, ","), e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func pipelineErr(stage string, sources []model.SourceKind, err error) error {
	return &PipelineError{Stage: stage, Sources: sources, Err: err}
}
