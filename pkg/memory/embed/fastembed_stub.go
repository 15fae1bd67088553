//go:build !fastembed

package embed

import (
	"context"
	"fmt"
)

// FastEmbedOptions mirrors the fastembed build's configuration so callers
// can reference it without the onnxruntime dependency.
type FastEmbedOptions struct {
	CacheDir  string
	MaxLength int
	BatchSize int
}

type FastEmbedder struct{}

func defaultFastEmbedOptions() *FastEmbedOptions { return nil }

func NewFastEmbedder(ctx context.Context, opt *FastEmbedOptions) (Embedder, error) {
	return nil, fmt.Errorf("fastembed support not included; rebuild with -tags fastembed")
}

func (FastEmbedder) Close() error { return nil }

func (FastEmbedder) Dim() int { return 0 }

func (FastEmbedder) Embed(ctx context.Context, q string) ([]float32, error) {
	return nil, fmt.Errorf("fastembed support not included")
}
