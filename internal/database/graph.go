package database

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// Traversal directions.
const (
	DirectionOut  = "out"
	DirectionIn   = "in"
	DirectionBoth = "both"
)

func normalizeDirection(direction string) string {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case DirectionOut:
		return DirectionOut
	case DirectionIn:
		return DirectionIn
	default:
		return DirectionBoth
	}
}

// ReadGraph returns every entity and every relation.
func (s *Store) ReadGraph(ctx context.Context) ([]apptype.Entity, []apptype.Relation, error) {
	const op = "read_graph"
	done := metrics.TimeOp("db_read_graph")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, nil, err
	}
	entities, err := s.loadEntities(ctx, "")
	if err != nil {
		return nil, nil, s.wrapErr(op, err)
	}
	relations, err := s.queryRelations(ctx, "")
	if err != nil {
		return nil, nil, s.wrapErr(op, err)
	}
	success = true
	return entities, relations, nil
}

// OpenNodes returns the named entities and every relation into or out of
// them. Unknown names are ignored.
func (s *Store) OpenNodes(ctx context.Context, names []string) ([]apptype.Entity, []apptype.Relation, error) {
	const op = "open_nodes"
	done := metrics.TimeOp("db_open_nodes")
	success := false
	defer func() { done(success) }()
	entities, err := s.GetEntities(ctx, names)
	if err != nil {
		return nil, nil, err
	}
	found := make([]string, len(entities))
	for i, e := range entities {
		found[i] = e.Name
	}
	relations, err := s.relationsTouching(ctx, found)
	if err != nil {
		return nil, nil, s.wrapErr(op, err)
	}
	success = true
	return entities, relations, nil
}

// neighborEdges returns relations leaving (out), entering (in) or touching
// (both) any of names.
func (s *Store) neighborEdges(ctx context.Context, names []string, direction string) ([]apptype.Relation, error) {
	if len(names) == 0 {
		return []apptype.Relation{}, nil
	}
	in := placeholders(len(names))
	args := stringArgs(names)
	switch direction {
	case DirectionOut:
		return s.queryRelations(ctx, "WHERE source IN ("+in+")", args...)
	case DirectionIn:
		return s.queryRelations(ctx, "WHERE target IN ("+in+")", args...)
	default:
		return s.relationsTouching(ctx, names)
	}
}

// adjacency maps each of names to its neighbours in edge order, at most
// perSeed each when perSeed > 0.
func adjacency(names []string, rels []apptype.Relation, direction string, perSeed int) map[string][]string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	adj := make(map[string][]string, len(names))
	seen := map[[2]string]bool{}
	add := func(from, to string) {
		if !want[from] || from == to || seen[[2]string{from, to}] {
			return
		}
		if perSeed > 0 && len(adj[from]) >= perSeed {
			return
		}
		seen[[2]string{from, to}] = true
		adj[from] = append(adj[from], to)
	}
	for _, r := range rels {
		if direction != DirectionIn {
			add(r.From, r.To)
		}
		if direction != DirectionOut {
			add(r.To, r.From)
		}
	}
	return adj
}

// Neighbors returns the one-hop neighbourhood of names: the seeds, up to
// perSeed neighbours of each (0 means all) and the edges followed.
func (s *Store) Neighbors(ctx context.Context, names []string, direction string, perSeed int) ([]apptype.Entity, []apptype.Relation, error) {
	const op = "neighbors"
	done := metrics.TimeOp("db_get_neighbors")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, nil, err
	}
	names = uniqueStrings(names)
	if len(names) == 0 {
		success = true
		return []apptype.Entity{}, []apptype.Relation{}, nil
	}
	direction = normalizeDirection(direction)
	rels, err := s.neighborEdges(ctx, names, direction)
	if err != nil {
		return nil, nil, s.wrapErr(op, err)
	}
	adj := adjacency(names, rels, direction, perSeed)
	keep := make(map[[2]string]bool)
	all := append([]string{}, names...)
	for from, tos := range adj {
		for _, to := range tos {
			keep[[2]string{from, to}] = true
			all = append(all, to)
		}
	}
	followed := make([]apptype.Relation, 0, len(rels))
	for _, r := range rels {
		out := direction != DirectionIn && keep[[2]string{r.From, r.To}]
		in := direction != DirectionOut && keep[[2]string{r.To, r.From}]
		if out || in {
			followed = append(followed, r)
		}
	}
	entities, err := s.GetEntities(ctx, all)
	if err != nil {
		return nil, nil, err
	}
	success = true
	return entities, followed, nil
}

// Walk expands from seeds breadth first up to maxDepth hops and returns the
// visited entities and traversed edges. limit caps the visited set.
func (s *Store) Walk(ctx context.Context, seeds []string, maxDepth int, direction string, limit int) ([]apptype.Entity, []apptype.Relation, error) {
	const op = "walk"
	if err := s.checkOpen(op); err != nil {
		return nil, nil, err
	}
	if maxDepth <= 0 {
		maxDepth = 1
	}
	direction = normalizeDirection(direction)
	seeds = uniqueStrings(seeds)
	visited := make(map[string]bool, len(seeds))
	order := make([]string, 0, len(seeds))
	for _, name := range seeds {
		visited[name] = true
		order = append(order, name)
	}
	edges := []apptype.Relation{}
	seenEdge := map[apptype.Relation]bool{}
	curr := seeds
	full := func() bool { return limit > 0 && len(visited) >= limit }
	for depth := 0; depth < maxDepth && len(curr) > 0 && !full(); depth++ {
		rels, err := s.neighborEdges(ctx, curr, direction)
		if err != nil {
			return nil, nil, s.wrapErr(op, err)
		}
		adj := adjacency(curr, rels, direction, 0)
		var next []string
		for _, from := range curr {
			for _, to := range adj[from] {
				if visited[to] || full() {
					continue
				}
				visited[to] = true
				order = append(order, to)
				next = append(next, to)
			}
		}
		for _, r := range rels {
			if visited[r.From] && visited[r.To] && !seenEdge[r] {
				seenEdge[r] = true
				edges = append(edges, r)
			}
		}
		curr = next
	}
	entities, err := s.GetEntities(ctx, order)
	if err != nil {
		return nil, nil, err
	}
	return entities, edges, nil
}

// ShortestPath finds a path with the fewest hops from one entity to another.
// The path is empty when none exists; unknown endpoints are NOT_FOUND.
func (s *Store) ShortestPath(ctx context.Context, from, to, direction string) (*apptype.PathResult, error) {
	const op = "shortest_path"
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return nil, errs.Validation(op, "from and to are required")
	}
	exists, err := s.existingEntities(ctx, []string{from, to})
	if err != nil {
		return nil, s.wrapErr(op, err)
	}
	for _, name := range []string{from, to} {
		if !exists[name] {
			return nil, errs.NotFound(op, "entity %q not found", name)
		}
	}
	direction = normalizeDirection(direction)

	type hop struct {
		parent string
		rel    apptype.Relation
	}
	parents := map[string]hop{}
	visited := map[string]bool{from: true}
	level := []string{from}
	found := from == to
	for len(level) > 0 && !found {
		rels, err := s.neighborEdges(ctx, level, direction)
		if err != nil {
			return nil, s.wrapErr(op, err)
		}
		inLevel := make(map[string]bool, len(level))
		for _, n := range level {
			inLevel[n] = true
		}
		var next []string
		try := func(u, v string, r apptype.Relation) {
			if !inLevel[u] || visited[v] {
				return
			}
			visited[v] = true
			parents[v] = hop{parent: u, rel: r}
			next = append(next, v)
			if v == to {
				found = true
			}
		}
		for _, r := range rels {
			if direction != DirectionIn {
				try(r.From, r.To, r)
			}
			if direction != DirectionOut {
				try(r.To, r.From, r)
			}
			if found {
				break
			}
		}
		level = next
	}
	if !found {
		return &apptype.PathResult{Path: []string{}, Relations: []apptype.Relation{}}, nil
	}

	names := []string{to}
	var rels []apptype.Relation
	for cur := to; cur != from; {
		h := parents[cur]
		names = append(names, h.parent)
		rels = append(rels, h.rel)
		cur = h.parent
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	for i, j := 0, len(rels)-1; i < j; i, j = i+1, j-1 {
		rels[i], rels[j] = rels[j], rels[i]
	}
	if rels == nil {
		rels = []apptype.Relation{}
	}
	return &apptype.PathResult{Path: names, Relations: rels}, nil
}
