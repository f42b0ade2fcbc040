package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/database"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
)

// ServerName is reported to MCP clients and by health_check.
const ServerName = "mcp-memory-graph-go"

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server   *mcp.Server
	db       *database.DBManager
	validate *validator.Validate
}

// NewMCPServer creates a new MCP server
func NewMCPServer(db *database.DBManager) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: buildinfo.Version,
	}, nil)

	mcpServer := &MCPServer{
		server:   server,
		db:       db,
		validate: validator.New(),
	}
	mcpServer.setupToolHandlers()
	return mcpServer
}

// schemaFor builds the JSON schema for T. A failure is a programming error.
func schemaFor[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T]()
	if err != nil {
		var zero T
		panic(fmt.Sprintf("failed to create schema for %T: %v", zero, err))
	}
	return schema
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	// Database management
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "list_databases",
		Title:        "List Databases",
		Description:  "List the logical databases and flag the active one.",
		InputSchema:  schemaFor[apptype.ListDatabasesArgs](),
		OutputSchema: schemaFor[apptype.ListDatabasesResult](),
	}, s.handleListDatabases)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_current_database",
		Title:        "Get Current Database",
		Description:  "Return the name of the active database.",
		InputSchema:  schemaFor[apptype.GetCurrentDatabaseArgs](),
		OutputSchema: schemaFor[apptype.CurrentDatabaseResult](),
	}, s.handleGetCurrentDatabase)
	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Switch Database"},
		Name:         "switch_database",
		Title:        "Switch Database",
		Description:  "Make another logical database active. On failure the previous database stays active.",
		InputSchema:  schemaFor[apptype.SwitchDatabaseArgs](),
		OutputSchema: schemaFor[apptype.SwitchDatabaseResult](),
	}, s.handleSwitchDatabase)

	// Documents
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "store_document",
		Title:        "Store Document",
		Description:  "Store a document, split it into token-bounded chunks and embed every chunk. An existing id is overwritten.",
		InputSchema:  schemaFor[apptype.StoreDocumentArgs](),
		OutputSchema: schemaFor[apptype.StoreDocumentResult](),
	}, s.handleStoreDocument)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "extract_terms",
		Title:        "Extract Terms",
		Description:  "Suggest candidate entity names found in a stored document. Nothing is written.",
		InputSchema:  schemaFor[apptype.ExtractTermsArgs](),
		OutputSchema: schemaFor[apptype.ExtractTermsResult](),
	}, s.handleExtractTerms)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "link_entities_to_document",
		Title:        "Link Entities To Document",
		Description:  "Link existing entities to every chunk of a document.",
		InputSchema:  schemaFor[apptype.LinkEntitiesToDocumentArgs](),
		OutputSchema: schemaFor[apptype.LinkEntitiesResult](),
	}, s.handleLinkEntitiesToDocument)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "delete_documents",
		Title:        "Delete Documents",
		Description:  "Delete documents with their chunks and entity links.",
		InputSchema:  schemaFor[apptype.DeleteDocumentsArgs](),
		OutputSchema: schemaFor[apptype.DeleteDocumentsResult](),
	}, s.handleDeleteDocuments)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "list_documents",
		Title:        "List Documents",
		Description:  "List stored documents with their chunk counts.",
		InputSchema:  schemaFor[apptype.ListDocumentsArgs](),
		OutputSchema: schemaFor[apptype.ListDocumentsResult](),
	}, s.handleListDocuments)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "re_embed_everything",
		Title:        "Re-embed Everything",
		Description:  "Recompute the embeddings of every entity and chunk in the active database.",
		InputSchema:  schemaFor[apptype.ReEmbedEverythingArgs](),
		OutputSchema: schemaFor[apptype.ReEmbedResult](),
	}, s.handleReEmbedEverything)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_detailed_context",
		Title:        "Get Detailed Context",
		Description:  "Return a chunk together with its neighbouring chunks from the same document.",
		InputSchema:  schemaFor[apptype.GetDetailedContextArgs](),
		OutputSchema: schemaFor[apptype.DetailedContext](),
	}, s.handleGetDetailedContext)

	// Graph
	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Create Entities"},
		Name:         "create_entities",
		Title:        "Create Entities",
		Description:  "Create new entities with observations. Names that already exist are skipped.",
		InputSchema:  schemaFor[apptype.CreateEntitiesArgs](),
		OutputSchema: schemaFor[apptype.CreateEntitiesResult](),
	}, s.handleCreateEntities)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "create_relations",
		Title:        "Create Relations",
		Description:  "Create relations between entities. Missing endpoints are created with type unknown.",
		InputSchema:  schemaFor[apptype.CreateRelationsArgs](),
		OutputSchema: schemaFor[apptype.BatchReport](),
	}, s.handleCreateRelations)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "add_observations",
		Title:        "Add Observations",
		Description:  "Append observations to existing entities.",
		InputSchema:  schemaFor[apptype.AddObservationsArgs](),
		OutputSchema: schemaFor[apptype.BatchReport](),
	}, s.handleAddObservations)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "delete_entities",
		Title:        "Delete Entities",
		Description:  "Delete entities with their observations, relations and document links.",
		InputSchema:  schemaFor[apptype.DeleteEntitiesArgs](),
		OutputSchema: schemaFor[apptype.DeleteEntitiesResult](),
	}, s.handleDeleteEntities)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "delete_relations",
		Title:        "Delete Relations",
		Description:  "Delete relations by exact match.",
		InputSchema:  schemaFor[apptype.DeleteRelationsArgs](),
		OutputSchema: schemaFor[apptype.DeleteRelationsResult](),
	}, s.handleDeleteRelations)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "delete_observations",
		Title:        "Delete Observations",
		Description:  "Delete observations from entities by exact match.",
		InputSchema:  schemaFor[apptype.DeleteObservationsArgs](),
		OutputSchema: schemaFor[apptype.BatchReport](),
	}, s.handleDeleteObservations)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "search_nodes",
		Title:        "Search Nodes",
		Description:  "Semantic search over entities and document chunks.",
		InputSchema:  schemaFor[apptype.SearchNodesArgs](),
		OutputSchema: schemaFor[apptype.SearchNodesResult](),
	}, s.handleSearchNodes)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "open_nodes",
		Title:        "Open Nodes",
		Description:  "Retrieve entities by name with their incoming and outgoing relations.",
		InputSchema:  schemaFor[apptype.OpenNodesArgs](),
		OutputSchema: schemaFor[apptype.GraphResult](),
	}, s.handleOpenNodes)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "read_graph",
		Title:        "Read Graph",
		Description:  "Return every entity and relation in the active database.",
		InputSchema:  schemaFor[apptype.ReadGraphArgs](),
		OutputSchema: schemaFor[apptype.GraphResult](),
	}, s.handleReadGraph)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "hybrid_search",
		Title:        "Hybrid Search",
		Description:  "Semantic search over entities and chunks, expanded one relation hop through the graph.",
		InputSchema:  schemaFor[apptype.HybridSearchArgs](),
		OutputSchema: schemaFor[apptype.HybridSearchResult](),
	}, s.handleHybridSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_knowledge_graph_stats",
		Title:        "Knowledge Graph Stats",
		Description:  "Count entities, relations, observations, documents, chunks and links.",
		InputSchema:  schemaFor[apptype.GetKnowledgeGraphStatsArgs](),
		OutputSchema: schemaFor[apptype.GraphStats](),
	}, s.handleGetKnowledgeGraphStats)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "neighbors",
		Title:        "Neighbors",
		Description:  "Fetch 1-hop neighbors for given entities.",
		InputSchema:  schemaFor[apptype.NeighborsArgs](),
		OutputSchema: schemaFor[apptype.GraphResult](),
	}, s.handleNeighbors)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "walk",
		Title:        "Graph Walk",
		Description:  "Bounded-depth walk from seed entities.",
		InputSchema:  schemaFor[apptype.WalkArgs](),
		OutputSchema: schemaFor[apptype.GraphResult](),
	}, s.handleWalk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "shortest_path",
		Title:        "Shortest Path",
		Description:  "Compute a shortest path between two entities.",
		InputSchema:  schemaFor[apptype.ShortestPathArgs](),
		OutputSchema: schemaFor[apptype.PathResult](),
	}, s.handleShortestPath)

	// Admin
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "health_check",
		Title:        "Health Check",
		Description:  "Returns server, database and readiness information.",
		InputSchema:  schemaFor[apptype.HealthArgs](),
		OutputSchema: schemaFor[apptype.HealthResult](),
	}, s.handleHealth)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "migration_status",
		Title:        "Migration Status",
		Description:  "List applied and pending schema migrations of the active database.",
		InputSchema:  schemaFor[apptype.MigrationStatusArgs](),
		OutputSchema: schemaFor[apptype.MigrationStatusResult](),
	}, s.handleMigrationStatus)
}

// check validates tool arguments against their struct tags.
func (s *MCPServer) check(command string, args any) error {
	err := s.validate.Struct(args)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.WithCommand(command, errs.Validation("validate", "%v", err))
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
	}
	return errs.WithCommand(command, errs.Validation("validate", "%s", strings.Join(msgs, "; ")))
}

// store returns the active store or a tagged error.
func (s *MCPServer) store(command string) (*database.Store, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, errs.WithCommand(command, err)
	}
	return store, nil
}

func text(format string, args ...any) []mcp.Content {
	return []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}}
}

// Server exposes the underlying MCP server.
func (s *MCPServer) Server() *mcp.Server { return s.server }

// SSEHandler serves MCP over SSE.
func (s *MCPServer) SSEHandler() http.Handler {
	return mcp.NewSSEHandler(func(r *http.Request) *mcp.Server { return s.server })
}

// Run starts the MCP server with stdio transport
func (s *MCPServer) Run(ctx context.Context) error {
	transport := mcp.NewStdioTransport()
	return s.server.Run(ctx, transport)
}

// RunSSE starts the MCP server over SSE at the given address and endpoint
func (s *MCPServer) RunSSE(ctx context.Context, addr string, endpoint string) error {
	mux := http.NewServeMux()
	mux.Handle(endpoint, s.SSEHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("SSE MCP server listening", "addr", addr, "endpoint", endpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve SSE: %w", err)
	}
	return nil
}
