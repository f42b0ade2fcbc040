package database

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/chunking"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

// keywordProvider embeds text as the counts of three keywords. Text with
// none of them lands on the fourth axis so no vector has zero norm.
type keywordProvider struct{}

func (keywordProvider) Name() string    { return "keyword" }
func (keywordProvider) Dimensions() int { return 4 }

func (keywordProvider) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		low := strings.ToLower(in)
		v := []float32{
			float32(strings.Count(low, "alpha")),
			float32(strings.Count(low, "beta")),
			float32(strings.Count(low, "gamma")),
			0,
		}
		if v[0] == 0 && v[1] == 0 && v[2] == 0 {
			v[3] = 1
		}
		out[i] = v
	}
	return out, nil
}

func testResources() *Resources {
	return &Resources{Provider: keywordProvider{}, Tokenizer: chunking.Whitespace{}}
}

func newTestConfig(t testing.TB, driver string) *Config {
	cfg := NewConfig()
	cfg.Engine = EngineEmbedded
	cfg.Driver = driver
	cfg.URL = ""
	cfg.AuthToken = ""
	cfg.DataDir = t.TempDir()
	cfg.ActiveDatabase = "default"
	cfg.AutoCreate = false
	cfg.EmbeddingDims = 4
	cfg.AdaptMode = ""
	cfg.HealthInterval = 0
	cfg.HybridDecay = 0.5
	cfg.HybridNeighborCap = 10
	cfg.ChunkMaxTokens = 8
	cfg.ChunkOverlap = 2
	cfg.ChunkCommitBatch = 2
	cfg.ReEmbedBatchSize = 2
	return cfg
}

func setupManager(t testing.TB, cfg *Config, opts ...Option) *DBManager {
	t.Helper()
	opts = append([]Option{WithResources(testResources())}, opts...)
	dm, err := NewDBManager(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, dm.Close()) })
	return dm
}

func setupTestDB(t testing.TB) *Store {
	t.Helper()
	dm := setupManager(t, newTestConfig(t, DriverLibSQL))
	store, err := dm.Store()
	require.NoError(t, err)
	return store
}

func entityNames(entities []apptype.Entity) []string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	return names
}

func TestCreateAndGetEntity(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	created, err := store.CreateEntities(ctx, []apptype.Entity{{
		Name:         "test-entity",
		EntityType:   "test-type",
		Observations: []string{"obs1", "obs2"},
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)

	got, err := store.GetEntities(ctx, []string{"test-entity"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "test-type", got[0].EntityType)
	assert.Equal(t, []string{"obs1", "obs2"}, got[0].Observations)
	assert.NotEmpty(t, got[0].CreatedAt)
}

func TestCreateEntitiesIdempotent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	batch := []apptype.Entity{
		{Name: "a", EntityType: "t", Observations: []string{"one"}},
		{Name: "a", EntityType: "other", Observations: []string{"ignored"}},
		{Name: "b"},
	}

	first, err := store.CreateEntities(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entityNames(first))

	second, err := store.CreateEntities(ctx, batch)
	require.NoError(t, err)
	assert.Empty(t, second)

	entities, relations, err := store.ReadGraph(ctx)
	require.NoError(t, err)
	assert.Empty(t, relations)
	require.Len(t, entities, 2)
	assert.Equal(t, "t", entities[0].EntityType)
	assert.Equal(t, []string{"one"}, entities[0].Observations)
	assert.Equal(t, UnknownEntityType, entities[1].EntityType)
}

func TestCreateEntitiesRejectsEmptyName(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.CreateEntities(context.Background(), []apptype.Entity{{Name: "  "}})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCreateRelationsAutoCreatesEndpoints(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	report, err := store.CreateRelations(ctx, []apptype.Relation{{From: "A", To: "B", RelationType: "X"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Items[0].Changed)

	entities, relations, err := store.ReadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, entityNames(entities))
	for _, e := range entities {
		assert.Equal(t, UnknownEntityType, e.EntityType)
		assert.Empty(t, e.Observations)
	}
	assert.Equal(t, []apptype.Relation{{From: "A", To: "B", RelationType: "X"}}, relations)

	again, err := store.CreateRelations(ctx, []apptype.Relation{{From: "A", To: "B", RelationType: "X"}})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Items[0].Changed)
}

func TestCreateRelationsIsolatesInvalidItems(t *testing.T) {
	store := setupTestDB(t)
	report, err := store.CreateRelations(context.Background(), []apptype.Relation{
		{From: "A", To: "", RelationType: "X"},
		{From: "A", To: "B", RelationType: "Y"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)
	assert.False(t, report.Items[0].OK)
	assert.Equal(t, string(errs.KindValidation), report.Items[0].ErrorKind)
	assert.True(t, report.Items[1].OK)
}

func TestDeleteEntitiesCascades(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.CreateRelations(ctx, []apptype.Relation{
		{From: "A", To: "B", RelationType: "knows"},
		{From: "C", To: "A", RelationType: "knows"},
		{From: "B", To: "C", RelationType: "knows"},
	})
	require.NoError(t, err)
	doc, err := store.StoreDocument(ctx, StoreDocumentInput{ID: "doc", Content: "some text about things"})
	require.NoError(t, err)
	_, err = store.LinkEntitiesToDocument(ctx, doc.DocumentID, []string{"A", "B"})
	require.NoError(t, err)

	deleted, err := store.DeleteEntities(ctx, []string{"A", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	entities, relations, err := store.ReadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, entityNames(entities))
	assert.Equal(t, []apptype.Relation{{From: "B", To: "C", RelationType: "knows"}}, relations)

	links, err := store.chunkLinks(ctx, []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "B", links[0].entity)
}

func TestAddObservations(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{{Name: "e", EntityType: "t", Observations: []string{"first"}}})
	require.NoError(t, err)

	report, err := store.AddObservations(ctx, []apptype.ObservationAddition{
		{EntityName: "e", Contents: []string{"first", "alpha fact", "alpha fact", "second"}},
		{EntityName: "ghost", Contents: []string{"x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Items[0].Changed)
	assert.Equal(t, string(errs.KindNotFound), report.Items[1].ErrorKind)

	got, err := store.GetEntities(ctx, []string{"e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "alpha fact", "second"}, got[0].Observations)

	// the embedding follows the new observation set
	hits, _, err := store.SearchNodes(ctx, "alpha", []string{apptype.KindEntity}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "e", hits[0].ID)
	assert.Greater(t, hits[0].Score, 0.5)
}

func TestDeleteObservations(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{{Name: "e", Observations: []string{"keep", "alpha drop"}}})
	require.NoError(t, err)

	report, err := store.DeleteObservations(ctx, []apptype.ObservationDeletion{
		{EntityName: "e", Observations: []string{"alpha drop", "not there"}},
		{EntityName: "ghost", Observations: []string{"x"}},
	})
	require.NoError(t, err)
	assert.True(t, report.Items[0].OK)
	assert.Equal(t, 1, report.Items[0].Changed)
	assert.False(t, report.Items[1].OK)

	got, err := store.GetEntities(ctx, []string{"e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, got[0].Observations)

	hits, _, err := store.SearchNodes(ctx, "alpha", []string{apptype.KindEntity}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.0, hits[0].Score, 1e-6)
}

func TestDeleteRelations(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateRelations(ctx, []apptype.Relation{
		{From: "A", To: "B", RelationType: "x"},
		{From: "A", To: "B", RelationType: "y"},
	})
	require.NoError(t, err)

	n, err := store.DeleteRelations(ctx, []apptype.Relation{{From: "A", To: "B", RelationType: "x"}, {From: "B", To: "A", RelationType: "x"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, relations, err := store.OpenNodes(ctx, []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, []apptype.Relation{{From: "A", To: "B", RelationType: "y"}}, relations)
}

func TestSearchNodesOrdering(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "zz", Observations: []string{"alpha"}},
		{Name: "aa", Observations: []string{"alpha"}},
		{Name: "mixed", Observations: []string{"alpha beta"}},
		{Name: "none", Observations: []string{"beta"}},
	})
	require.NoError(t, err)
	_, err = store.CreateRelations(ctx, []apptype.Relation{{From: "aa", To: "none", RelationType: "r"}})
	require.NoError(t, err)

	hits, rels, err := store.SearchNodes(ctx, "alpha", nil, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "aa", hits[0].ID)
	assert.Equal(t, "zz", hits[1].ID)
	assert.Equal(t, "mixed", hits[2].ID)
	assert.NotNil(t, hits[0].Entity)
	assert.Equal(t, []apptype.Relation{{From: "aa", To: "none", RelationType: "r"}}, rels)

	_, _, err = store.SearchNodes(ctx, "alpha", []string{"document"}, 3)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func testSearchCapsLimit(t *testing.T, store *Store) {
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "a1", Observations: []string{"alpha"}},
		{Name: "a2", Observations: []string{"alpha beta"}},
		{Name: "b1", Observations: []string{"beta"}},
	})
	require.NoError(t, err)
	_, err = store.CreateRelations(ctx, []apptype.Relation{{From: "a1", To: "b1", RelationType: "r"}})
	require.NoError(t, err)

	hits, _, err := store.SearchNodes(ctx, "alpha", nil, 1<<40)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hybrid, err := store.HybridSearch(ctx, HybridQuery{Query: "alpha", Limit: 1 << 40, UseGraph: true, IncludeEntities: true, IncludeDocuments: true})
	require.NoError(t, err)
	assert.Len(t, hybrid, 3)
}

func TestSearchCapsLimit(t *testing.T) {
	testSearchCapsLimit(t, setupTestDB(t))
}

func TestSearchCapsLimitSQLite(t *testing.T) {
	dm := setupManager(t, newTestConfig(t, DriverSQLite))
	store, err := dm.Store()
	require.NoError(t, err)
	testSearchCapsLimit(t, store)
}

func TestLargeNameListsAreBatched(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	n := 2*maxInArgs + 7
	batch := make([]apptype.Entity, n)
	names := make([]string, n)
	for i := range batch {
		names[i] = fmt.Sprintf("e%05d", i)
		batch[i] = apptype.Entity{Name: names[i], EntityType: "t"}
	}
	created, err := store.CreateEntities(ctx, batch)
	require.NoError(t, err)
	require.Len(t, created, n)

	again, err := store.CreateEntities(ctx, batch)
	require.NoError(t, err)
	assert.Empty(t, again)

	loaded, err := store.GetEntities(ctx, names)
	require.NoError(t, err)
	require.Len(t, loaded, n)
	assert.Equal(t, names, entityNames(loaded))

	doc, err := store.StoreDocument(ctx, StoreDocumentInput{ID: "doc", Content: "some text about things"})
	require.NoError(t, err)
	linked, err := store.LinkEntitiesToDocument(ctx, doc.DocumentID, names)
	require.NoError(t, err)
	assert.Equal(t, n*len(doc.ChunkIDs), linked.LinksCreated)

	deleted, err := store.DeleteEntities(ctx, names)
	require.NoError(t, err)
	assert.Equal(t, n, deleted)
	stats, err := store.GetKnowledgeGraphStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Entities)
	assert.Zero(t, stats.Links)
}

func TestClosedStoreFailsWithConnectionClosed(t *testing.T) {
	store := setupTestDB(t)
	require.NoError(t, store.Close())
	_, _, err := store.ReadGraph(context.Background())
	assert.ErrorIs(t, err, errs.ErrConnectionClosed)
}

func TestStatsCountsEverything(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "p1", EntityType: "person", Observations: []string{"a", "b"}},
		{Name: "p2", EntityType: "person"},
		{Name: "proj", EntityType: "project"},
	})
	require.NoError(t, err)
	_, err = store.CreateRelations(ctx, []apptype.Relation{{From: "p1", To: "proj", RelationType: "works_on"}})
	require.NoError(t, err)
	doc, err := store.StoreDocument(ctx, StoreDocumentInput{ID: "d", Content: "one two three"})
	require.NoError(t, err)
	_, err = store.LinkEntitiesToDocument(ctx, doc.DocumentID, []string{"p1", "p2"})
	require.NoError(t, err)

	stats, err := store.GetKnowledgeGraphStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entities)
	assert.Equal(t, 1, stats.Relations)
	assert.Equal(t, 2, stats.Observations)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Chunks)
	assert.Equal(t, 2, stats.Links)
	assert.Equal(t, map[string]int{"person": 2, "project": 1}, stats.EntitiesByType)
}
