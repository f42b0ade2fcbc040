package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

// seedHybridGraph builds one strong match, four unrelated fillers that win
// the remaining seed slots on id order, and zeta, reachable only through a
// relation from the strong match.
func seedHybridGraph(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "alpha-node", EntityType: "t", Observations: []string{"about alpha"}},
		{Name: "filler1", Observations: []string{"beta"}},
		{Name: "filler2", Observations: []string{"beta"}},
		{Name: "filler3", Observations: []string{"beta"}},
		{Name: "filler4", Observations: []string{"beta"}},
		{Name: "zeta", Observations: []string{"unrelated"}},
	})
	require.NoError(t, err)
	_, err = store.CreateRelations(ctx, []apptype.Relation{{From: "alpha-node", To: "zeta", RelationType: "mentions"}})
	require.NoError(t, err)
}

func hitIDs(hits []apptype.SearchHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func testHybridExpansion(t *testing.T, store *Store) {
	seedHybridGraph(t, store)
	ctx := context.Background()

	without, err := store.HybridSearch(ctx, HybridQuery{Query: "alpha", Limit: 2, IncludeEntities: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha-node", "filler1"}, hitIDs(without))
	for _, h := range without {
		assert.True(t, h.Direct)
	}

	with, err := store.HybridSearch(ctx, HybridQuery{Query: "alpha", Limit: 2, UseGraph: true, IncludeEntities: true})
	require.NoError(t, err)
	require.Equal(t, []string{"alpha-node", "zeta"}, hitIDs(with))
	assert.InDelta(t, 1.0, with[0].Score, 1e-5)
	assert.InDelta(t, 0.5, with[1].Score, 1e-5)
	assert.False(t, with[1].Direct)
	assert.Equal(t, "alpha-node", with[1].Via)
	require.NotNil(t, with[1].Entity)
	assert.Equal(t, "zeta", with[1].Entity.Name)
}

func TestHybridSearchGraphExpansion(t *testing.T) {
	testHybridExpansion(t, setupTestDB(t))
}

func TestHybridSearchGraphExpansionSQLite(t *testing.T) {
	dm := setupManager(t, newTestConfig(t, DriverSQLite))
	store, err := dm.Store()
	require.NoError(t, err)
	assert.False(t, store.Dialect().VectorSQL)
	testHybridExpansion(t, store)
}

func TestHybridSearchWithoutGraphStaysInSeedSet(t *testing.T) {
	store := setupTestDB(t)
	seedHybridGraph(t, store)
	ctx := context.Background()

	for _, limit := range []int{1, 2, 3, 6} {
		seeds, err := store.HybridSearch(ctx, HybridQuery{Query: "alpha", Limit: 2 * limit, IncludeEntities: true})
		require.NoError(t, err)
		seedSet := map[string]bool{}
		for _, h := range seeds {
			seedSet[h.ID] = true
		}
		hits, err := store.HybridSearch(ctx, HybridQuery{Query: "alpha", Limit: limit, IncludeEntities: true})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(hits), limit)
		for _, h := range hits {
			assert.True(t, seedSet[h.ID], "%s is not a seed", h.ID)
			assert.True(t, h.Direct)
		}
	}
}

func TestHybridSearchPullsLinkedChunks(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{{Name: "gamma-topic", Observations: []string{"gamma gamma"}}})
	require.NoError(t, err)
	doc, err := store.StoreDocument(ctx, StoreDocumentInput{ID: "notes", Content: "plain words only"})
	require.NoError(t, err)
	// weak direct matches that fill every chunk seed slot
	for _, id := range []string{"f1", "f2", "f3"} {
		_, err := store.StoreDocument(ctx, StoreDocumentInput{ID: id, Content: "gamma beta beta beta"})
		require.NoError(t, err)
	}
	_, err = store.LinkEntitiesToDocument(ctx, "notes", []string{"gamma-topic"})
	require.NoError(t, err)

	hits, err := store.HybridSearch(ctx, HybridQuery{Query: "gamma", Limit: 2, UseGraph: true, IncludeEntities: true, IncludeDocuments: true})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "gamma-topic", hits[0].ID)
	assert.Equal(t, apptype.KindChunk, hits[1].Kind)
	assert.Equal(t, doc.ChunkIDs[0], hits[1].ID)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-5)
	assert.Equal(t, "gamma-topic", hits[1].Via)
	require.NotNil(t, hits[1].Chunk)
	assert.Equal(t, "plain words only", hits[1].Chunk.Text)
}

func TestHybridSearchValidation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.HybridSearch(ctx, HybridQuery{Query: "x"})
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = store.HybridSearch(ctx, HybridQuery{Query: " ", IncludeEntities: true})
	assert.ErrorIs(t, err, errs.ErrValidation)
}
