package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// DefaultHybridLimit applies when a hybrid search omits its limit.
const DefaultHybridLimit = 10

// HybridQuery parameterizes HybridSearch.
type HybridQuery struct {
	Query            string
	Limit            int
	UseGraph         bool
	IncludeDocuments bool
	IncludeEntities  bool
}

// expansion records how a graph-only hit was reached.
type expansion struct {
	via   string
	score float64
}

func expansionKey(kind, id string) string { return kind + "\x00" + id }

// HybridSearch seeds candidates by similarity, optionally expands one
// relation hop from every seed entity and pulls in chunks linked to the
// included entities, then ranks everything by score. Expanded hits score
// parent * HybridDecay, keeping the best parent.
func (s *Store) HybridSearch(ctx context.Context, q HybridQuery) ([]apptype.SearchHit, error) {
	const op = "hybrid_search"
	done := metrics.TimeOp("db_hybrid_search")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return nil, errs.Validation(op, "query must be a non-empty string")
	}
	if !q.IncludeEntities && !q.IncludeDocuments {
		return nil, errs.Validation(op, "at least one of includeEntities or includeDocuments must be true")
	}
	if q.Limit < 0 {
		return nil, errs.Validation(op, "limit must be >= 0")
	}
	if q.Limit == 0 {
		q.Limit = DefaultHybridLimit
	}
	q.Limit = min(q.Limit, MaxSearchLimit)

	qvec, err := s.embedOne(ctx, q.Query)
	if err != nil {
		return nil, err
	}
	seeds, err := s.similaritySeeds(ctx, qvec, 2*q.Limit, q.IncludeEntities, q.IncludeDocuments)
	if err != nil {
		return nil, s.wrapErr(op, err)
	}

	candidates := append([]scored{}, seeds...)
	expanded := map[string]expansion{}
	if q.UseGraph {
		more, err := s.expandSeeds(ctx, seeds, q.IncludeEntities, q.IncludeDocuments, expanded)
		if err != nil {
			return nil, s.wrapErr(op, err)
		}
		candidates = append(candidates, more...)
	}
	sortScored(candidates)
	if len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}
	results, err := s.attachPayloads(ctx, candidates, expanded)
	if err != nil {
		return nil, s.wrapErr(op, err)
	}
	success = true
	return results, nil
}

// expandSeeds returns the graph-only candidates reachable from seeds and
// records their parents in expanded.
func (s *Store) expandSeeds(ctx context.Context, seeds []scored, withEntities, withChunks bool, expanded map[string]expansion) ([]scored, error) {
	decay := s.cfg.HybridDecay
	direct := make(map[string]bool, len(seeds))
	entityScores := map[string]float64{}
	var seedNames []string
	for _, h := range seeds {
		direct[expansionKey(h.kind, h.id)] = true
		if h.kind == apptype.KindEntity {
			seedNames = append(seedNames, h.id)
			entityScores[h.id] = h.score
		}
	}
	if len(seedNames) == 0 {
		return nil, nil
	}

	propose := func(kind, id, via string, score float64) {
		key := expansionKey(kind, id)
		if direct[key] {
			return
		}
		if cur, ok := expanded[key]; ok && cur.score >= score {
			return
		}
		expanded[key] = expansion{via: via, score: score}
	}

	if withEntities {
		rels, err := s.relationsTouching(ctx, seedNames)
		if err != nil {
			return nil, err
		}
		adj := adjacency(seedNames, rels, DirectionBoth, s.cfg.HybridNeighborCap)
		// seeds are already ordered best first
		for _, seed := range seedNames {
			for _, neighbor := range adj[seed] {
				propose(apptype.KindEntity, neighbor, seed, entityScores[seed]*decay)
			}
		}
	}

	if withChunks {
		included := make(map[string]float64, len(entityScores)+len(expanded))
		for name, score := range entityScores {
			included[name] = score
		}
		for key, x := range expanded {
			if kind, name, _ := strings.Cut(key, "\x00"); kind == apptype.KindEntity {
				included[name] = x.score
			}
		}
		names := make([]string, 0, len(included))
		for name := range included {
			names = append(names, name)
		}
		links, err := s.chunkLinks(ctx, names)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			propose(apptype.KindChunk, l.chunkID, l.entity, included[l.entity]*decay)
		}
	}

	more := make([]scored, 0, len(expanded))
	for key, x := range expanded {
		kind, id, _ := strings.Cut(key, "\x00")
		more = append(more, scored{kind: kind, id: id, score: x.score})
	}
	return more, nil
}

type chunkLink struct {
	entity  string
	chunkID string
}

// chunkLinks returns the chunk links of names ordered by entity and chunk id.
func (s *Store) chunkLinks(ctx context.Context, names []string) ([]chunkLink, error) {
	var links []chunkLink
	for start := 0; start < len(names); start += maxInArgs {
		part := names[start:min(start+maxInArgs, len(names))]
		rows, err := s.db.QueryContext(ctx,
			s.q("SELECT entity_name, chunk_id FROM entity_chunk_links WHERE entity_name IN ("+placeholders(len(part))+") ORDER BY entity_name, chunk_id"),
			stringArgs(part)...)
		if err != nil {
			return nil, fmt.Errorf("failed to query chunk links: %w", err)
		}
		for rows.Next() {
			var l chunkLink
			if err := rows.Scan(&l.entity, &l.chunkID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan chunk link: %w", err)
			}
			links = append(links, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return links, nil
}
