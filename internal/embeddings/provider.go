package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/util"
)

// Provider defines a simple embeddings provider interface.
// Implementations should be concurrency-safe.
type Provider interface {
	// Name returns the provider name (e.g., "openai", "ollama").
	Name() string
	// Dimensions returns the embedding dimensionality this provider produces.
	Dimensions() int
	// Embed returns one embedding per input string, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// NewFromEnv constructs a provider based on environment variables.
// EMBEDDINGS_PROVIDER: "openai", "localai", "gemini", "ollama" or "hash".
// An unset provider falls back to the local hash provider so the server can
// run without a model; hash vectors only capture word overlap.
func NewFromEnv(dims int) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(util.GetEnv("EMBEDDINGS_PROVIDER")))
	switch name {
	case "openai":
		return newOpenAIFromEnv()
	case "localai", "llamacpp", "llama.cpp":
		return newLocalAIFromEnv()
	case "gemini", "google-gemini", "google":
		return newGeminiFromEnv()
	case "ollama":
		return newOllamaFromEnv()
	case "", "hash":
		if name == "" {
			logger.Warn("EMBEDDINGS_PROVIDER not set, using hash embeddings", "dims", dims)
		}
		return NewHashProvider(dims), nil
	default:
		return nil, fmt.Errorf("unsupported embeddings provider %q", name)
	}
}
