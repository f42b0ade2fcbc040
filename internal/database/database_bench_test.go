package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
)

func fmtName(i int) string { return fmt.Sprintf("entity-%06d", i) }

func setupBenchDB(b *testing.B, n int) *Store {
	b.Helper()
	store := setupTestDB(b)
	ctx := context.Background()
	batch := make([]apptype.Entity, 0, 200)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if _, err := store.CreateEntities(ctx, batch); err != nil {
			b.Fatalf("CreateEntities: %v", err)
		}
		batch = batch[:0]
	}
	for i := range n {
		obs := []string{"lorem ipsum", "dolor sit amet"}
		switch i % 3 {
		case 0:
			obs = append(obs, "alpha")
		case 1:
			obs = append(obs, "beta")
		}
		batch = append(batch, apptype.Entity{Name: fmtName(i), EntityType: "t", Observations: obs})
		if len(batch) == cap(batch) {
			flush()
		}
	}
	flush()

	rels := make([]apptype.Relation, 0, n)
	for i := 1; i < n; i++ {
		rels = append(rels, apptype.Relation{From: fmtName(i - 1), To: fmtName(i), RelationType: "next"})
	}
	if _, err := store.CreateRelations(ctx, rels); err != nil {
		b.Fatalf("CreateRelations: %v", err)
	}
	return store
}

func BenchmarkCreateEntities(b *testing.B) {
	store := setupTestDB(b)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := store.CreateEntities(ctx, []apptype.Entity{{Name: fmtName(i), EntityType: "t", Observations: []string{"alpha beta"}}})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearchNodes(b *testing.B) {
	store := setupBenchDB(b, 1000)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := store.SearchNodes(ctx, "alpha", []string{apptype.KindEntity}, 10); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHybridSearch(b *testing.B) {
	store := setupBenchDB(b, 1000)
	ctx := context.Background()
	q := HybridQuery{Query: "alpha", Limit: 10, UseGraph: true, IncludeEntities: true, IncludeDocuments: true}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.HybridSearch(ctx, q); err != nil {
			b.Fatal(err)
		}
	}
}
