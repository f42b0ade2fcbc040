package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

func TestNeighbors_Walk_ShortestPath(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	// a->b->c, a->d
	_, err := store.CreateRelations(ctx, []apptype.Relation{
		{From: "a", To: "b", RelationType: "r"},
		{From: "b", To: "c", RelationType: "r"},
		{From: "a", To: "d", RelationType: "r"},
	})
	require.NoError(t, err)

	ents, rels, err := store.Neighbors(ctx, []string{"a"}, DirectionOut, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d"}, entityNames(ents))
	assert.Len(t, rels, 2)

	ents, rels, err = store.Neighbors(ctx, []string{"b"}, DirectionIn, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entityNames(ents))
	assert.Equal(t, []apptype.Relation{{From: "a", To: "b", RelationType: "r"}}, rels)

	ents, _, err = store.Neighbors(ctx, []string{"a"}, DirectionBoth, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entityNames(ents))

	ents, rels, err = store.Walk(ctx, []string{"a"}, 2, DirectionOut, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, entityNames(ents))
	assert.Len(t, rels, 3)

	path, err := store.ShortestPath(ctx, "a", "c", DirectionOut)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, path.Path)
	assert.Len(t, path.Relations, 2)

	none, err := store.ShortestPath(ctx, "c", "a", DirectionOut)
	require.NoError(t, err)
	assert.Empty(t, none.Path)

	back, err := store.ShortestPath(ctx, "c", "a", DirectionBoth)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, back.Path)

	_, err = store.ShortestPath(ctx, "a", "ghost", DirectionBoth)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestOpenNodesIncludesBothDirections(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateRelations(ctx, []apptype.Relation{
		{From: "x", To: "hub", RelationType: "in"},
		{From: "hub", To: "y", RelationType: "out"},
		{From: "x", To: "y", RelationType: "unrelated"},
	})
	require.NoError(t, err)

	ents, rels, err := store.OpenNodes(ctx, []string{"hub", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hub"}, entityNames(ents))
	assert.ElementsMatch(t, []apptype.Relation{
		{From: "x", To: "hub", RelationType: "in"},
		{From: "hub", To: "y", RelationType: "out"},
	}, rels)
}
