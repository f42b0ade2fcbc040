package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/util"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openAIProvider talks to the OpenAI embeddings endpoint or any server that
// speaks the same API (LocalAI, llama.cpp, Gemini's compatibility layer).
type openAIProvider struct {
	name   string
	client openai.Client
	model  string
	dims   int
}

type openAIParams struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Dims    int
}

func newOpenAIProvider(p openAIParams) *openAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(p.APIKey)}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}
	return &openAIProvider{
		name:   p.Name,
		client: openai.NewClient(opts...),
		model:  p.Model,
		dims:   p.Dims,
	}
}

func newOpenAIFromEnv() (Provider, error) {
	apiKey := strings.TrimSpace(util.GetEnv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
	}
	model := util.GetEnvString("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small")
	dims := 1536
	if strings.Contains(model, "large") {
		dims = 3072
	}
	return newOpenAIProvider(openAIParams{
		Name:    "openai",
		APIKey:  apiKey,
		BaseURL: util.GetEnv("OPENAI_BASE_URL"),
		Model:   model,
		Dims:    util.GetEnvInt("OPENAI_EMBEDDINGS_DIMS", dims),
	}), nil
}

func newLocalAIFromEnv() (Provider, error) {
	model := util.GetEnvString("LOCALAI_EMBEDDINGS_MODEL", "text-embedding-ada-002")
	dims := 1536
	if strings.Contains(model, "large") {
		dims = 3072
	}
	return newOpenAIProvider(openAIParams{
		Name:    "localai",
		APIKey:  util.GetEnvString("LOCALAI_API_KEY", "localai"),
		BaseURL: util.GetEnvString("LOCALAI_BASE_URL", "http://localhost:8080/v1"),
		Model:   model,
		Dims:    util.GetEnvInt("LOCALAI_EMBEDDINGS_DIMS", dims),
	}), nil
}

func newGeminiFromEnv() (Provider, error) {
	apiKey := strings.TrimSpace(util.GetEnv("GOOGLE_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required for the gemini provider")
	}
	return newOpenAIProvider(openAIParams{
		Name:    "gemini",
		APIKey:  apiKey,
		BaseURL: util.GetEnvString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		Model:   util.GetEnvString("GEMINI_EMBEDDINGS_MODEL", "text-embedding-004"),
		Dims:    util.GetEnvInt("GEMINI_EMBEDDINGS_DIMS", 768),
	}), nil
}

func (p *openAIProvider) Name() string    { return p.name }
func (p *openAIProvider) Dimensions() int { return p.dims }

func (p *openAIProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%s embeddings request failed: %w", p.name, err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(resp.Data), len(inputs))
	}

	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(inputs) {
			return nil, fmt.Errorf("embedding index out of range: %d", d.Index)
		}
		out[idx] = f64to32(d.Embedding)
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}
	return out, nil
}

func f64to32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(v[i])
	}
	return out
}
