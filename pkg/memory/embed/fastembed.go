//go:build fastembed

package embed

import (
	"context"
	"runtime"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedOptions configures the local ONNX embedding pipeline. The zero
// Model value picks bge-small-en-v1.5.
type FastEmbedOptions struct {
	Model     fastembed.EmbeddingModel
	CacheDir  string
	MaxLength int // token limit, 0 = library default
	BatchSize int
}

type FastEmbedder struct {
	m   *fastembed.FlagEmbedding
	dim int
	bs  int
}

func defaultFastEmbedOptions() *FastEmbedOptions {
	return &FastEmbedOptions{CacheDir: ".fastembed"}
}

func NewFastEmbedder(ctx context.Context, opt *FastEmbedOptions) (Embedder, error) {
	var init *fastembed.InitOptions
	if opt != nil {
		init = &fastembed.InitOptions{
			Model:     opt.Model,
			CacheDir:  opt.CacheDir,
			MaxLength: opt.MaxLength,
		}
	}
	m, err := fastembed.NewFlagEmbedding(init)
	if err != nil {
		return nil, err
	}
	// Batch heuristic: keep it modest for desktop CPUs.
	bs := 64
	if opt != nil && opt.BatchSize > 0 {
		bs = opt.BatchSize
	}
	if bs > 4*runtime.GOMAXPROCS(0) {
		bs = 4 * runtime.GOMAXPROCS(0)
	}
	return &FastEmbedder{m: m, dim: 768, bs: bs}, nil
}

func (e *FastEmbedder) Close() error {
	if e.m != nil {
		e.m.Destroy()
	}
	return nil
}

func (e *FastEmbedder) Dim() int { return e.dim }

func (e *FastEmbedder) Embed(ctx context.Context, q string) ([]float32, error) {
	return e.m.QueryEmbed(q)
}
