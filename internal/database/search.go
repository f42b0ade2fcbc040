package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// DefaultSearchLimit applies when a search omits its limit.
const DefaultSearchLimit = 5

// MaxSearchLimit caps the result count of a single search.
const MaxSearchLimit = 1000

// scored is one similarity hit before payloads are attached.
type scored struct {
	kind  string
	id    string
	score float64
}

// sortScored orders by descending score, ties by ascending id.
func sortScored(hits []scored) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if hits[i].id != hits[j].id {
			return hits[i].id < hits[j].id
		}
		return hits[i].kind < hits[j].kind
	})
}

func (s *Store) scoreEntities(ctx context.Context, query []float32, k int) ([]scored, error) {
	return s.scoreTable(ctx, apptype.KindEntity, "entities", "name", query, k)
}

func (s *Store) scoreChunks(ctx context.Context, query []float32, k int) ([]scored, error) {
	return s.scoreTable(ctx, apptype.KindChunk, "chunks", "id", query, k)
}

// scoreTable returns the top k rows of table by cosine similarity of their
// embedding to query. The database ranks when it has vector functions,
// otherwise every stored vector is scored here.
func (s *Store) scoreTable(ctx context.Context, kind, table, key string, query []float32, k int) ([]scored, error) {
	if k <= 0 {
		return []scored{}, nil
	}
	if s.dialect.VectorSQL {
		arg, err := s.dialect.VectorArg(query)
		if err != nil {
			return nil, err
		}
		stmt, err := s.preparedStmt(ctx, fmt.Sprintf(
			"SELECT %s, %s AS score FROM %s WHERE embedding IS NOT NULL ORDER BY score DESC, %s ASC LIMIT ?",
			key, s.dialect.SimilarityExpr("embedding"), table, key))
		if err != nil {
			return nil, err
		}
		rows, err := stmt.QueryContext(ctx, arg, k)
		if err != nil {
			return nil, fmt.Errorf("failed to run similarity query on %s: %w", table, err)
		}
		defer rows.Close()
		var hits []scored
		for rows.Next() {
			h := scored{kind: kind}
			if err := rows.Scan(&h.id, &h.score); err != nil {
				return nil, fmt.Errorf("failed to scan similarity row: %w", err)
			}
			hits = append(hits, h)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		// Float ties from the database are re-ordered by id here.
		sortScored(hits)
		return hits, nil
	}

	stmt, err := s.preparedStmt(ctx, fmt.Sprintf("SELECT %s, embedding FROM %s WHERE embedding IS NOT NULL", key, table))
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read embeddings from %s: %w", table, err)
	}
	defer rows.Close()
	var hits []scored
	for rows.Next() {
		var id string
		vs := vectorScanner{kind: s.dialect.Kind}
		if err := rows.Scan(&id, &vs); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		hits = append(hits, scored{kind: kind, id: id, score: cosineSimilarity(query, vs.vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortScored(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchNodes ranks entities and/or chunks by similarity to query and
// returns the top limit with their payloads, plus the relations touching the
// entity hits. types is a subset of "entity" and "chunk"; empty means both.
func (s *Store) SearchNodes(ctx context.Context, query string, types []string, limit int) ([]apptype.SearchHit, []apptype.Relation, error) {
	const op = "search_nodes"
	done := metrics.TimeOp("db_search_nodes")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, errs.Validation(op, "query must be a non-empty string")
	}
	if limit < 0 {
		return nil, nil, errs.Validation(op, "limit must be >= 0")
	}
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)
	wantEntities, wantChunks := len(types) == 0, len(types) == 0
	for _, t := range types {
		switch strings.ToLower(t) {
		case apptype.KindEntity:
			wantEntities = true
		case apptype.KindChunk:
			wantChunks = true
		default:
			return nil, nil, errs.Validation(op, "unknown node type %q", t)
		}
	}

	qvec, err := s.embedOne(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	hits, err := s.similaritySeeds(ctx, qvec, limit, wantEntities, wantChunks)
	if err != nil {
		return nil, nil, s.wrapErr(op, err)
	}
	results, err := s.attachPayloads(ctx, hits, nil)
	if err != nil {
		return nil, nil, s.wrapErr(op, err)
	}
	var names []string
	for _, h := range results {
		if h.Kind == apptype.KindEntity {
			names = append(names, h.ID)
		}
	}
	relations, err := s.relationsTouching(ctx, names)
	if err != nil {
		return nil, nil, s.wrapErr(op, err)
	}
	success = true
	return results, relations, nil
}

// similaritySeeds merges the top k entities and top k chunks and keeps the
// best k overall.
func (s *Store) similaritySeeds(ctx context.Context, qvec []float32, k int, entities, chunks bool) ([]scored, error) {
	var hits []scored
	if entities {
		found, err := s.scoreEntities(ctx, qvec, k)
		if err != nil {
			return nil, err
		}
		hits = append(hits, found...)
	}
	if chunks {
		found, err := s.scoreChunks(ctx, qvec, k)
		if err != nil {
			return nil, err
		}
		hits = append(hits, found...)
	}
	sortScored(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// attachPayloads turns scored hits into SearchHits carrying the entity or
// chunk. Hits whose row vanished in the meantime are dropped.
func (s *Store) attachPayloads(ctx context.Context, hits []scored, expanded map[string]expansion) ([]apptype.SearchHit, error) {
	var names, chunkIDs []string
	for _, h := range hits {
		if h.kind == apptype.KindEntity {
			names = append(names, h.id)
		} else {
			chunkIDs = append(chunkIDs, h.id)
		}
	}
	entities := map[string]*apptype.Entity{}
	if len(names) > 0 {
		loaded, err := s.loadEntities(ctx, "WHERE name IN ("+placeholders(len(names))+")", stringArgs(names)...)
		if err != nil {
			return nil, err
		}
		for i := range loaded {
			entities[loaded[i].Name] = &loaded[i]
		}
	}
	chunks, err := s.loadChunks(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}

	results := make([]apptype.SearchHit, 0, len(hits))
	for _, h := range hits {
		hit := apptype.SearchHit{Kind: h.kind, ID: h.id, Score: h.score, Direct: true}
		if x, ok := expanded[expansionKey(h.kind, h.id)]; ok {
			hit.Direct = false
			hit.Via = x.via
		}
		if h.kind == apptype.KindEntity {
			if hit.Entity = entities[h.id]; hit.Entity == nil {
				continue
			}
		} else {
			if hit.Chunk = chunks[h.id]; hit.Chunk == nil {
				continue
			}
		}
		results = append(results, hit)
	}
	return results, nil
}
