package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vowelEmbedder maps text onto counts of a, e and o.
type vowelEmbedder struct{}

func (vowelEmbedder) Name() string    { return "vowels" }
func (vowelEmbedder) Dimensions() int { return 3 }

func (vowelEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		low := strings.ToLower(in)
		out[i] = []float32{
			float32(strings.Count(low, "a")) + 0.1,
			float32(strings.Count(low, "e")) + 0.1,
			float32(strings.Count(low, "o")) + 0.1,
		}
	}
	return out, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), &Config{
		Engine:         "embedded",
		Driver:         "sqlite",
		DataDir:        t.TempDir(),
		ActiveDatabase: "lib",
		EmbeddingDims:  3,
		ChunkMaxTokens: 4,
		ChunkOverlap:   1,
		Tokenizer:      "whitespace",
	}, WithEmbedder(vowelEmbedder{}))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })
	return svc
}

func TestServiceGraphAndDocuments(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.True(t, svc.Ready())
	assert.Equal(t, "lib", svc.CurrentDatabase())

	created, err := svc.CreateEntities(ctx, []Entity{{Name: "banana", EntityType: "fruit", Observations: []string{"yellow and sweet"}}})
	require.NoError(t, err)
	require.Len(t, created, 1)

	report, err := svc.CreateRelations(ctx, []Relation{{From: "banana", To: "monkey", RelationType: "eaten_by"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	ents, rels, err := svc.OpenNodes(ctx, []string{"monkey"})
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, "unknown", ents[0].EntityType)
	assert.Len(t, rels, 1)

	stored, err := svc.StoreDocument(ctx, StoreDocumentInput{ID: "notes", Content: "bananas are eaten by monkeys every day"})
	require.NoError(t, err)
	// 7 tokens, window 4, overlap 1: ceil((7-1)/3) = 2
	assert.Equal(t, 2, stored.ChunkCount)

	hits, err := svc.HybridSearch(ctx, HybridQuery{Query: "banana", Limit: 3, UseGraph: true, IncludeDocuments: true, IncludeEntities: true})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entities)
	assert.Equal(t, 2, stats.Chunks)
}

func TestConfigKeepsEnvironmentDefaults(t *testing.T) {
	t.Setenv("HYBRID_NEIGHBOR_CAP", "7")
	cfg := (&Config{DataDir: "x", EmbeddingDims: 8}).toInternal()
	assert.Equal(t, 7, cfg.HybridNeighborCap)
	assert.Equal(t, 8, cfg.EmbeddingDims)
	assert.Equal(t, "x", cfg.DataDir)
}
