package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/database"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// handleCreateEntities handles the create_entities tool call
func (s *MCPServer) handleCreateEntities(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CreateEntitiesArgs],
) (*mcp.CallToolResultFor[apptype.CreateEntitiesResult], error) {
	done := metrics.TimeTool("create_entities")
	var success bool
	defer func() { done(success) }()

	if err := s.check("create_entities", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("create_entities")
	if err != nil {
		return nil, err
	}
	entities := params.Arguments.Entities
	created, err := store.CreateEntities(ctx, entities)
	if err != nil {
		return nil, errs.WithCommand("create_entities", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.CreateEntitiesResult]{
		Content: text("Created %d of %d entities in %s", len(created), len(entities), store.Database()),
		StructuredContent: apptype.CreateEntitiesResult{
			Created: created,
			Skipped: len(entities) - len(created),
		},
	}, nil
}

// handleCreateRelations handles the create_relations tool call
func (s *MCPServer) handleCreateRelations(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CreateRelationsArgs],
) (*mcp.CallToolResultFor[apptype.BatchReport], error) {
	done := metrics.TimeTool("create_relations")
	var success bool
	defer func() { done(success) }()

	if err := s.check("create_relations", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("create_relations")
	if err != nil {
		return nil, err
	}
	report, err := store.CreateRelations(ctx, params.Arguments.Relations)
	if err != nil {
		return nil, errs.WithCommand("create_relations", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.BatchReport]{
		Content:           text("Processed %d relations: %d ok, %d failed", len(report.Items), report.Succeeded, report.Failed),
		StructuredContent: *report,
	}, nil
}

// handleAddObservations handles the add_observations tool call
func (s *MCPServer) handleAddObservations(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.AddObservationsArgs],
) (*mcp.CallToolResultFor[apptype.BatchReport], error) {
	done := metrics.TimeTool("add_observations")
	var success bool
	defer func() { done(success) }()

	if err := s.check("add_observations", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("add_observations")
	if err != nil {
		return nil, err
	}
	report, err := store.AddObservations(ctx, params.Arguments.Observations)
	if err != nil {
		return nil, errs.WithCommand("add_observations", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.BatchReport]{
		Content:           text("Updated %d entities, %d failed", report.Succeeded, report.Failed),
		StructuredContent: *report,
	}, nil
}

func (s *MCPServer) handleDeleteEntities(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteEntitiesArgs],
) (*mcp.CallToolResultFor[apptype.DeleteEntitiesResult], error) {
	done := metrics.TimeTool("delete_entities")
	var success bool
	defer func() { done(success) }()

	if err := s.check("delete_entities", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("delete_entities")
	if err != nil {
		return nil, err
	}
	n, err := store.DeleteEntities(ctx, params.Arguments.EntityNames)
	if err != nil {
		return nil, errs.WithCommand("delete_entities", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.DeleteEntitiesResult]{
		Content:           text("Deleted %d entities", n),
		StructuredContent: apptype.DeleteEntitiesResult{Deleted: n},
	}, nil
}

func (s *MCPServer) handleDeleteRelations(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteRelationsArgs],
) (*mcp.CallToolResultFor[apptype.DeleteRelationsResult], error) {
	done := metrics.TimeTool("delete_relations")
	var success bool
	defer func() { done(success) }()

	if err := s.check("delete_relations", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("delete_relations")
	if err != nil {
		return nil, err
	}
	n, err := store.DeleteRelations(ctx, params.Arguments.Relations)
	if err != nil {
		return nil, errs.WithCommand("delete_relations", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.DeleteRelationsResult]{
		Content:           text("Deleted %d relations", n),
		StructuredContent: apptype.DeleteRelationsResult{Deleted: n},
	}, nil
}

func (s *MCPServer) handleDeleteObservations(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteObservationsArgs],
) (*mcp.CallToolResultFor[apptype.BatchReport], error) {
	done := metrics.TimeTool("delete_observations")
	var success bool
	defer func() { done(success) }()

	if err := s.check("delete_observations", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("delete_observations")
	if err != nil {
		return nil, err
	}
	report, err := store.DeleteObservations(ctx, params.Arguments.Deletions)
	if err != nil {
		return nil, errs.WithCommand("delete_observations", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.BatchReport]{
		Content:           text("Updated %d entities, %d failed", report.Succeeded, report.Failed),
		StructuredContent: *report,
	}, nil
}

// handleSearchNodes handles the search_nodes tool call
func (s *MCPServer) handleSearchNodes(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.SearchNodesArgs],
) (*mcp.CallToolResultFor[apptype.SearchNodesResult], error) {
	done := metrics.TimeTool("search_nodes")
	var success bool
	defer func() { done(success) }()

	if err := s.check("search_nodes", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("search_nodes")
	if err != nil {
		return nil, err
	}
	args := params.Arguments
	limit := args.Limit
	if limit <= 0 {
		limit = database.DefaultSearchLimit
	}
	hits, relations, err := store.SearchNodes(ctx, args.Query, args.NodeTypesToSearch, limit)
	if err != nil {
		return nil, errs.WithCommand("search_nodes", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.SearchNodesResult]{
		Content:           text("Found %d results", len(hits)),
		StructuredContent: apptype.SearchNodesResult{Results: hits, Relations: relations},
	}, nil
}

// handleOpenNodes handles the open_nodes tool call
func (s *MCPServer) handleOpenNodes(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.OpenNodesArgs],
) (*mcp.CallToolResultFor[apptype.GraphResult], error) {
	done := metrics.TimeTool("open_nodes")
	var success bool
	defer func() { done(success) }()

	if err := s.check("open_nodes", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("open_nodes")
	if err != nil {
		return nil, err
	}
	entities, relations, err := store.OpenNodes(ctx, params.Arguments.Names)
	if err != nil {
		return nil, errs.WithCommand("open_nodes", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.GraphResult]{
		Content:           text("Opened %d entities", len(entities)),
		StructuredContent: apptype.GraphResult{Entities: entities, Relations: relations},
	}, nil
}

// handleReadGraph handles the read_graph tool call
func (s *MCPServer) handleReadGraph(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ReadGraphArgs],
) (*mcp.CallToolResultFor[apptype.GraphResult], error) {
	done := metrics.TimeTool("read_graph")
	var success bool
	defer func() { done(success) }()

	store, err := s.store("read_graph")
	if err != nil {
		return nil, err
	}
	entities, relations, err := store.ReadGraph(ctx)
	if err != nil {
		return nil, errs.WithCommand("read_graph", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.GraphResult]{
		Content:           text("Graph has %d entities and %d relations", len(entities), len(relations)),
		StructuredContent: apptype.GraphResult{Entities: entities, Relations: relations},
	}, nil
}

// boolOr dereferences b, using def when the caller left it out.
func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func (s *MCPServer) handleHybridSearch(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HybridSearchArgs],
) (*mcp.CallToolResultFor[apptype.HybridSearchResult], error) {
	done := metrics.TimeTool("hybrid_search")
	var success bool
	defer func() { done(success) }()

	if err := s.check("hybrid_search", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("hybrid_search")
	if err != nil {
		return nil, err
	}
	args := params.Arguments
	hits, err := store.HybridSearch(ctx, database.HybridQuery{
		Query:            args.Query,
		Limit:            args.Limit,
		UseGraph:         boolOr(args.UseGraph, true),
		IncludeDocuments: boolOr(args.IncludeDocuments, true),
		IncludeEntities:  boolOr(args.IncludeEntities, true),
	})
	if err != nil {
		return nil, errs.WithCommand("hybrid_search", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.HybridSearchResult]{
		Content:           text("Found %d results", len(hits)),
		StructuredContent: apptype.HybridSearchResult{Results: hits},
	}, nil
}

func (s *MCPServer) handleGetKnowledgeGraphStats(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetKnowledgeGraphStatsArgs],
) (*mcp.CallToolResultFor[apptype.GraphStats], error) {
	done := metrics.TimeTool("get_knowledge_graph_stats")
	var success bool
	defer func() { done(success) }()

	store, err := s.store("get_knowledge_graph_stats")
	if err != nil {
		return nil, err
	}
	stats, err := store.GetKnowledgeGraphStats(ctx)
	if err != nil {
		return nil, errs.WithCommand("get_knowledge_graph_stats", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.GraphStats]{
		Content: text("%d entities, %d relations, %d documents, %d chunks",
			stats.Entities, stats.Relations, stats.Documents, stats.Chunks),
		StructuredContent: *stats,
	}, nil
}

// handleNeighbors returns 1-hop neighbors and connecting relations
func (s *MCPServer) handleNeighbors(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.NeighborsArgs],
) (*mcp.CallToolResultFor[apptype.GraphResult], error) {
	done := metrics.TimeTool("neighbors")
	var success bool
	defer func() { done(success) }()

	if err := s.check("neighbors", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("neighbors")
	if err != nil {
		return nil, err
	}
	args := params.Arguments
	ents, rels, err := store.Neighbors(ctx, args.Names, args.Direction, args.Limit)
	if err != nil {
		return nil, errs.WithCommand("neighbors", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.GraphResult]{
		Content:           text("Neighbors fetched"),
		StructuredContent: apptype.GraphResult{Entities: ents, Relations: rels},
	}, nil
}

func (s *MCPServer) handleWalk(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.WalkArgs],
) (*mcp.CallToolResultFor[apptype.GraphResult], error) {
	done := metrics.TimeTool("walk")
	var success bool
	defer func() { done(success) }()

	if err := s.check("walk", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("walk")
	if err != nil {
		return nil, err
	}
	args := params.Arguments
	ents, rels, err := store.Walk(ctx, args.Names, args.MaxDepth, args.Direction, args.Limit)
	if err != nil {
		return nil, errs.WithCommand("walk", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.GraphResult]{
		Content:           text("Walk complete"),
		StructuredContent: apptype.GraphResult{Entities: ents, Relations: rels},
	}, nil
}

func (s *MCPServer) handleShortestPath(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ShortestPathArgs],
) (*mcp.CallToolResultFor[apptype.PathResult], error) {
	done := metrics.TimeTool("shortest_path")
	var success bool
	defer func() { done(success) }()

	if err := s.check("shortest_path", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("shortest_path")
	if err != nil {
		return nil, err
	}
	args := params.Arguments
	path, err := store.ShortestPath(ctx, args.From, args.To, args.Direction)
	if err != nil {
		return nil, errs.WithCommand("shortest_path", err)
	}
	success = true
	msg := "No path"
	if len(path.Path) > 0 {
		msg = "Shortest path found"
	}
	return &mcp.CallToolResultFor[apptype.PathResult]{
		Content:           text("%s", msg),
		StructuredContent: *path,
	}, nil
}
