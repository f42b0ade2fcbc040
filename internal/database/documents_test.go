package database

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/chunking"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func intPtr(v int) *int { return &v }

func TestStoreDocumentChunkCount(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	cases := []struct {
		tokens, max, overlap int
	}{
		{tokens: 5, max: 8, overlap: 2},
		{tokens: 8, max: 8, overlap: 2},
		{tokens: 9, max: 8, overlap: 2},
		{tokens: 20, max: 8, overlap: 2},
		{tokens: 21, max: 5, overlap: 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("T%d_M%d_O%d", tc.tokens, tc.max, tc.overlap), func(t *testing.T) {
			res, err := store.StoreDocument(ctx, StoreDocumentInput{
				ID:        fmt.Sprintf("doc-%d-%d-%d", tc.tokens, tc.max, tc.overlap),
				Content:   words(tc.tokens),
				MaxTokens: intPtr(tc.max),
				Overlap:   intPtr(tc.overlap),
			})
			require.NoError(t, err)
			want := chunking.ExpectedChunks(tc.tokens, chunking.Options{MaxTokens: tc.max, Overlap: tc.overlap})
			assert.Equal(t, want, res.ChunkCount)
			assert.Len(t, res.ChunkIDs, want)

			chunks, err := store.queryChunks(ctx, "WHERE document_id = ?", res.DocumentID)
			require.NoError(t, err)
			require.Len(t, chunks, want)
			for i, c := range chunks {
				assert.Equal(t, i, c.Position)
				assert.LessOrEqual(t, c.TokenCount, tc.max)
			}
		})
	}
}

func TestStoreDocumentRejectsOverlapAtMax(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.StoreDocument(context.Background(), StoreDocumentInput{
		ID: "d", Content: words(10), MaxTokens: intPtr(4), Overlap: intPtr(4),
	})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = store.StoreDocument(context.Background(), StoreDocumentInput{ID: "d", Content: "   "})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestStoreDocumentGeneratesID(t *testing.T) {
	store := setupTestDB(t)
	res, err := store.StoreDocument(context.Background(), StoreDocumentInput{Content: "hello there"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.DocumentID)
	assert.False(t, res.Replaced)
}

func TestStoreDocumentOverwrites(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{{Name: "e"}})
	require.NoError(t, err)

	first, err := store.StoreDocument(ctx, StoreDocumentInput{ID: "doc", Content: words(20), Metadata: map[string]any{"v": 1}})
	require.NoError(t, err)
	require.Equal(t, 3, first.ChunkCount)
	_, err = store.LinkEntitiesToDocument(ctx, "doc", []string{"e"})
	require.NoError(t, err)

	second, err := store.StoreDocument(ctx, StoreDocumentInput{ID: "doc", Content: words(4), Metadata: map[string]any{"v": 2}})
	require.NoError(t, err)
	assert.True(t, second.Replaced)
	assert.Equal(t, 1, second.ChunkCount)

	for _, id := range first.ChunkIDs {
		_, err := store.GetDetailedContext(ctx, id, 1)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	}
	links, err := store.chunkLinks(ctx, []string{"e"})
	require.NoError(t, err)
	assert.Empty(t, links)

	docs, err := store.ListDocuments(ctx, true)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, docs[0].ChunkCount)
	assert.EqualValues(t, 2, docs[0].Metadata["v"])
	assert.Empty(t, docs[0].Content)
}

func TestGetDetailedContext(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	res, err := store.StoreDocument(ctx, StoreDocumentInput{ID: "doc", Content: words(20)})
	require.NoError(t, err)
	require.Len(t, res.ChunkIDs, 3)

	first, err := store.GetDetailedContext(ctx, res.ChunkIDs[0], 2)
	require.NoError(t, err)
	assert.Equal(t, 0, first.BeforeCount)
	assert.Equal(t, 2, first.AfterCount)
	assert.Equal(t, 1, first.After[0].Position)
	assert.Equal(t, 2, first.After[1].Position)

	middle, err := store.GetDetailedContext(ctx, res.ChunkIDs[1], 5)
	require.NoError(t, err)
	assert.Equal(t, 1, middle.BeforeCount)
	assert.Equal(t, 1, middle.AfterCount)

	unbounded, err := store.GetDetailedContext(ctx, res.ChunkIDs[1], math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, 1, unbounded.BeforeCount)
	assert.Equal(t, 1, unbounded.AfterCount)

	alone, err := store.GetDetailedContext(ctx, res.ChunkIDs[2], 0)
	require.NoError(t, err)
	assert.Empty(t, alone.Before)
	assert.Empty(t, alone.After)
	assert.Equal(t, "doc", alone.DocumentID)

	_, err = store.GetDetailedContext(ctx, res.ChunkIDs[0], -1)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestLinkEntitiesToDocumentIsStrict(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)
	doc, err := store.StoreDocument(ctx, StoreDocumentInput{ID: "doc", Content: words(20)})
	require.NoError(t, err)

	_, err = store.LinkEntitiesToDocument(ctx, "doc", []string{"a", "ghost", "phantom"})
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.Contains(t, err.Error(), "ghost, phantom")
	links, err := store.chunkLinks(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, links)

	_, err = store.LinkEntitiesToDocument(ctx, "nope", []string{"a"})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	res, err := store.LinkEntitiesToDocument(ctx, doc.DocumentID, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 6, res.LinksCreated)

	again, err := store.LinkEntitiesToDocument(ctx, doc.DocumentID, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 0, again.LinksCreated)
}

func TestDeleteDocumentsCascades(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{{Name: "a"}})
	require.NoError(t, err)
	doc, err := store.StoreDocument(ctx, StoreDocumentInput{ID: "doc", Content: words(20)})
	require.NoError(t, err)
	_, err = store.LinkEntitiesToDocument(ctx, "doc", []string{"a"})
	require.NoError(t, err)

	deleted, missing, err := store.DeleteDocuments(ctx, []string{"doc", "other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc"}, deleted)
	assert.Equal(t, []string{"other"}, missing)

	chunks, err := store.loadChunks(ctx, doc.ChunkIDs)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	links, err := store.chunkLinks(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, links)
	docs, err := store.ListDocuments(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestExtractTermsFromStoredDocument(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.StoreDocument(ctx, StoreDocumentInput{
		ID:      "doc",
		Content: "Ada Lovelace met Charles Babbage. Then the notes of Ada Lovelace were printed.",
	})
	require.NoError(t, err)

	terms, err := store.ExtractTerms(ctx, "doc", chunking.TermOptions{})
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, chunking.Term{Term: "Ada Lovelace", Frequency: 2, Source: "capitalized"}, terms[0])
	assert.Equal(t, "Charles Babbage", terms[1].Term)

	_, err = store.ExtractTerms(ctx, "missing", chunking.TermOptions{})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReEmbedEverything(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, err := store.CreateEntities(ctx, []apptype.Entity{{Name: "a"}, {Name: "b"}, {Name: "c"}})
	require.NoError(t, err)
	_, err = store.StoreDocument(ctx, StoreDocumentInput{ID: "doc", Content: words(20)})
	require.NoError(t, err)

	// wipe the stored vectors so the rebuild is observable
	_, err = store.db.ExecContext(ctx, "UPDATE entities SET embedding = NULL")
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, "UPDATE chunks SET embedding = NULL")
	require.NoError(t, err)

	res, err := store.ReEmbedEverything(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entities)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 4, res.Batches)

	hits, _, err := store.SearchNodes(ctx, "anything", nil, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 6)
}
