package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/util"
	"github.com/ollama/ollama/api"
)

type ollamaProvider struct {
	client *api.Client
	model  string
	dims   int
}

func newOllamaFromEnv() (Provider, error) {
	host := util.GetEnvString("OLLAMA_HOST", "http://localhost:11434")
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	// Cold model loads can take a while, so the default timeout is generous.
	timeout := util.GetEnvDuration("OLLAMA_HTTP_TIMEOUT", util.GetEnvDuration("EMBEDDINGS_HTTP_TIMEOUT", 60*time.Second))
	return &ollamaProvider{
		client: api.NewClient(u, &http.Client{Timeout: timeout}),
		model:  util.GetEnvString("OLLAMA_EMBEDDINGS_MODEL", "nomic-embed-text"),
		dims:   util.GetEnvInt("OLLAMA_EMBEDDINGS_DIMS", 768),
	}, nil
}

func (p *ollamaProvider) Name() string    { return "ollama" }
func (p *ollamaProvider) Dimensions() int { return p.dims }

func (p *ollamaProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	res, err := p.client.Embed(ctx, &api.EmbedRequest{
		Model: p.model,
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed request failed: %w", err)
	}
	if len(res.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(res.Embeddings), len(inputs))
	}
	return res.Embeddings, nil
}
