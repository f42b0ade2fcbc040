package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexProvider encodes each input's numeric value into a one-dim vector and
// answers batches in reverse arrival order to shake out alignment bugs.
type indexProvider struct {
	calls    atomic.Int32
	failures atomic.Int32
}

func (p *indexProvider) Name() string    { return "index" }
func (p *indexProvider) Dimensions() int { return 1 }

func (p *indexProvider) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	p.calls.Add(1)
	if p.failures.Load() > 0 {
		p.failures.Add(-1)
		return nil, errors.New("transient")
	}
	time.Sleep(time.Duration(len(inputs)%3) * time.Millisecond)
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		var n int
		_, _ = fmt.Sscanf(in, "item-%d", &n)
		out[i] = []float32{float32(n)}
	}
	return out, nil
}

func TestPoolPreservesPositionalAlignment(t *testing.T) {
	base := &indexProvider{}
	pool := NewPool(base, PoolOptions{Workers: 3, BatchSize: 4})

	inputs := make([]string, 37)
	for i := range inputs {
		inputs[i] = fmt.Sprintf("item-%d", i)
	}
	vecs, err := pool.Embed(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, vecs, len(inputs))
	for i, v := range vecs {
		assert.Equal(t, float32(i), v[0])
	}
	assert.Equal(t, int32(10), base.calls.Load())
}

func TestPoolRetriesTransientFailures(t *testing.T) {
	base := &indexProvider{}
	base.failures.Store(1)
	pool := NewPool(base, PoolOptions{Workers: 1, BatchSize: 8, MaxRetries: 2, Backoff: time.Millisecond})

	vecs, err := pool.Embed(context.Background(), []string{"item-1", "item-2"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)

	base.failures.Store(5)
	_, err = pool.Embed(context.Background(), []string{"item-3"})
	assert.Error(t, err)
}

func TestWrapToDims(t *testing.T) {
	base := NewHashProvider(8)
	assert.Same(t, Provider(base), WrapToDims(base, 8, ""))

	padded := WrapToDims(base, 12, AdaptPad)
	vecs, err := padded.Embed(context.Background(), []string{"alpha beta"})
	require.NoError(t, err)
	require.Len(t, vecs[0], 12)
	assert.Equal(t, float32(0), vecs[0][11])

	truncated := WrapToDims(base, 4, "")
	vecs, err = truncated.Embed(context.Background(), []string{"alpha beta"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 4)

	_, err = WrapToDims(base, 4, AdaptPad).Embed(context.Background(), []string{"alpha"})
	assert.Error(t, err)
	_, err = WrapToDims(base, 16, AdaptTruncate).Embed(context.Background(), []string{"alpha"})
	assert.Error(t, err)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashProviderDeterministicAndOverlapSensitive(t *testing.T) {
	h := NewHashProvider(256)
	vecs, err := h.Embed(context.Background(), []string{"graph databases", "Graph databases!", "banana bread"})
	require.NoError(t, err)
	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, cosine(vecs[0], vecs[1]), 1e-6)
	assert.Less(t, cosine(vecs[0], vecs[2]), 0.99)
}

func TestOpenAIProviderAgainstCompatibleServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		// Reverse order; the provider must place vectors by index.
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Object: "embedding", Index: j, Embedding: []float64{float64(j), 1}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	defer srv.Close()

	p := newOpenAIProvider(openAIParams{Name: "localai", APIKey: "k", BaseURL: srv.URL + "/v1", Model: "test-model", Dims: 2})
	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}, {2, 1}}, vecs)
}

func TestOllamaProviderEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		var req api.EmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.EmbedResponse{
			Model:      req.Model,
			Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	p := &ollamaProvider{client: api.NewClient(u, srv.Client()), model: "nomic-embed-text", dims: 2}
	vecs, err := p.Embed(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)
}

func TestNewFromEnvDefaultsToHash(t *testing.T) {
	t.Setenv("EMBEDDINGS_PROVIDER", "")
	p, err := NewFromEnv(32)
	require.NoError(t, err)
	assert.Equal(t, "hash", p.Name())
	assert.Equal(t, 32, p.Dimensions())

	t.Setenv("EMBEDDINGS_PROVIDER", "nope")
	_, err = NewFromEnv(32)
	assert.Error(t, err)
}
