package embed

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
)

// Embedder is a pluggable text-embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrNotSupported is returned by providers that do not offer embeddings.
var ErrNotSupported = errors.New("embeddings not supported by this provider")

// ---------- Dummy (fallback) ----------

// DummyEmbedder produces deterministic byte-histogram vectors. It exists so
// the engine stays usable in tests and offline setups.
type DummyEmbedder struct{}

func (DummyEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return DummyEmbedding(text), nil
}

// DummyEmbedding folds the input bytes into a fixed 768-dim vector.
func DummyEmbedding(text string) []float32 {
	vec := make([]float32, 768)
	for i, ch := range []byte(text) {
		vec[i%768] += float32(ch) / 255.0
	}
	return vec
}

// AutoEmbedder chooses a provider from env:
// INFOAGENT_EMBED_PROVIDER=openai|gemini|ollama|voyage|fastembed
// INFOAGENT_EMBED_MODEL=<model string>
// Unset or unusable providers fall back to the deterministic dummy.
func AutoEmbedder() Embedder {
	provider := os.Getenv("INFOAGENT_EMBED_PROVIDER")
	model := os.Getenv("INFOAGENT_EMBED_MODEL")
	return ForProvider(provider, model)
}

// ForProvider builds the named provider, falling back to the dummy when
// the provider is unknown or cannot be constructed.
func ForProvider(provider, model string) Embedder {
	provider = strings.ToLower(strings.TrimSpace(provider))
	model = strings.TrimSpace(model)

	switch provider {
	case "openai":
		if e, err := NewOpenAIEmbedder(model); err == nil {
			return e
		}
	case "google", "gemini":
		if e, err := NewGeminiEmbedder(model); err == nil {
			return e
		}
	case "ollama":
		if e, err := NewOllamaEmbedder(model); err == nil {
			return e
		}
	case "voyage", "claude", "anthropic":
		if e, err := NewVoyageEmbedder(model); err == nil {
			return e
		}
	case "fastembed":
		if opts := defaultFastEmbedOptions(); opts != nil {
			if e, err := NewFastEmbedder(context.Background(), opts); err == nil {
				return e
			}
		}
	}

	log.Printf("embed: falling back to DummyEmbedder")
	return DummyEmbedder{}
}

// SafeEmbed never fails; provider errors degrade to the dummy vector.
func SafeEmbed(e Embedder, text string) []float32 {
	if e == nil {
		return DummyEmbedding(text)
	}
	v, err := e.Embed(context.Background(), text)
	if err != nil || len(v) == 0 {
		return DummyEmbedding(text)
	}
	return v
}
