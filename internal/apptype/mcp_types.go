package apptype

// Database management

type ListDatabasesArgs struct{}

type ListDatabasesResult struct {
	Databases []DatabaseInfo `json:"databases"`
}

type GetCurrentDatabaseArgs struct{}

type CurrentDatabaseResult struct {
	Database string `json:"database"`
	Engine   string `json:"engine"`
}

// SwitchDatabaseArgs represents the arguments for the switch_database tool
type SwitchDatabaseArgs struct {
	DatabaseName string `json:"databaseName" validate:"required" jsonschema:"Logical database to make active."`
}

type SwitchDatabaseResult struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
	Migrated []int  `json:"migrated"`
}

// Documents

// StoreDocumentArgs represents the arguments for the store_document tool
type StoreDocumentArgs struct {
	ID        string         `json:"id,omitempty" jsonschema:"Document id. An existing id is overwritten. Generated when omitted."`
	Content   string         `json:"content" validate:"required" jsonschema:"Full document text."`
	Metadata  map[string]any `json:"metadata,omitempty" jsonschema:"Arbitrary metadata stored with the document."`
	MaxTokens *int           `json:"maxTokens,omitempty" validate:"omitempty,gt=0" jsonschema:"Maximum tokens per chunk."`
	Overlap   *int           `json:"overlap,omitempty" validate:"omitempty,gte=0" jsonschema:"Tokens shared by consecutive chunks. Must be below maxTokens."`
}

type StoreDocumentResult struct {
	DocumentID string   `json:"documentId"`
	ChunkCount int      `json:"chunkCount"`
	ChunkIDs   []string `json:"chunkIds"`
	Replaced   bool     `json:"replaced"`
}

// ExtractTermsArgs represents the arguments for the extract_terms tool
type ExtractTermsArgs struct {
	DocumentID string `json:"documentId" validate:"required" jsonschema:"Document to scan."`
	Pattern    string `json:"pattern,omitempty" jsonschema:"Extra regular expression; its first capture group is the term when present."`
	MinLength  int    `json:"minLength,omitempty" validate:"gte=0" jsonschema:"Minimum term length in characters (default 3)."`
	Limit      int    `json:"limit,omitempty" validate:"gte=0" jsonschema:"Maximum number of terms to return."`
}

type ExtractedTerm struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
	Source    string `json:"source"`
}

type ExtractTermsResult struct {
	DocumentID string          `json:"documentId"`
	Terms      []ExtractedTerm `json:"terms"`
}

// LinkEntitiesToDocumentArgs represents the arguments for the link_entities_to_document tool
type LinkEntitiesToDocumentArgs struct {
	DocumentID  string   `json:"documentId" validate:"required" jsonschema:"Document whose chunks are linked."`
	EntityNames []string `json:"entityNames" validate:"required,min=1,dive,required" jsonschema:"Existing entities to link to every chunk."`
}

type LinkEntitiesResult struct {
	DocumentID   string `json:"documentId"`
	Entities     int    `json:"entities"`
	Chunks       int    `json:"chunks"`
	LinksCreated int    `json:"linksCreated"`
}

type DeleteDocumentsArgs struct {
	DocumentIDs []string `json:"documentIds" validate:"required,min=1,dive,required" jsonschema:"Documents to delete with their chunks and links."`
}

type DeleteDocumentsResult struct {
	Deleted []string `json:"deleted"`
	Missing []string `json:"missing"`
}

type ListDocumentsArgs struct {
	IncludeMetadata bool `json:"includeMetadata,omitempty" jsonschema:"Include document metadata in the listing."`
}

type ListDocumentsResult struct {
	Documents []Document `json:"documents"`
}

type ReEmbedEverythingArgs struct{}

type ReEmbedResult struct {
	Entities int `json:"entities"`
	Chunks   int `json:"chunks"`
	Batches  int `json:"batches"`
}

// GetDetailedContextArgs represents the arguments for the get_detailed_context tool
type GetDetailedContextArgs struct {
	ChunkID           string `json:"chunkId" validate:"required" jsonschema:"Chunk to center on."`
	SurroundingChunks *int   `json:"surroundingChunks,omitempty" validate:"omitempty,gte=0" jsonschema:"Chunks to include on each side (default 1)."`
}

type DetailedContext struct {
	DocumentID  string  `json:"documentId"`
	Target      Chunk   `json:"target"`
	Before      []Chunk `json:"before"`
	After       []Chunk `json:"after"`
	BeforeCount int     `json:"beforeCount"`
	AfterCount  int     `json:"afterCount"`
}

// Graph

// CreateEntitiesArgs represents the arguments for the create_entities tool
type CreateEntitiesArgs struct {
	Entities []Entity `json:"entities" validate:"required,min=1,dive" jsonschema:"A list of entities to create. Existing names are skipped."`
}

type CreateEntitiesResult struct {
	Created []Entity `json:"created"`
	Skipped int      `json:"skipped"`
}

// CreateRelationsArgs represents the arguments for the create_relations tool
type CreateRelationsArgs struct {
	Relations []Relation `json:"relations" validate:"required,min=1" jsonschema:"A list of relations to create. Missing endpoints are created."`
}

// AddObservationsArgs represents arguments for appending observations to entities
type AddObservationsArgs struct {
	Observations []ObservationAddition `json:"observations" validate:"required,min=1" jsonschema:"Observations to append, grouped by entity."`
}

type DeleteEntitiesArgs struct {
	EntityNames []string `json:"entityNames" validate:"required,min=1,dive,required" jsonschema:"Entities to delete with their relations, observations and document links."`
}

type DeleteEntitiesResult struct {
	Deleted int `json:"deleted"`
}

type DeleteRelationsArgs struct {
	Relations []Relation `json:"relations" validate:"required,min=1,dive" jsonschema:"Relations to delete by exact match."`
}

type DeleteRelationsResult struct {
	Deleted int `json:"deleted"`
}

type DeleteObservationsArgs struct {
	Deletions []ObservationDeletion `json:"deletions" validate:"required,min=1" jsonschema:"Observations to remove, grouped by entity."`
}

// SearchNodesArgs represents the arguments for the search_nodes tool
type SearchNodesArgs struct {
	Query             string   `json:"query" validate:"required" jsonschema:"Natural language query."`
	NodeTypesToSearch []string `json:"nodeTypesToSearch,omitempty" validate:"omitempty,dive,oneof=entity chunk" jsonschema:"Subset of entity and chunk (default both)."`
	Limit             int      `json:"limit,omitempty" validate:"gte=0,lte=1000" jsonschema:"Maximum number of results to return (default 5, at most 1000)."`
}

type SearchNodesResult struct {
	Results   []SearchHit `json:"results"`
	Relations []Relation  `json:"relations"`
}

// OpenNodesArgs represents arguments for fetching entities with their relations
type OpenNodesArgs struct {
	Names []string `json:"names" validate:"required,min=1" jsonschema:"Entity names to open."`
}

// ReadGraphArgs represents the arguments for the read_graph tool
type ReadGraphArgs struct{}

// GraphResult represents the result for graph-related tools (open_nodes, read_graph, walk)
type GraphResult struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// HybridSearchArgs represents the arguments for the hybrid_search tool
type HybridSearchArgs struct {
	Query            string `json:"query" validate:"required" jsonschema:"Natural language query."`
	Limit            int    `json:"limit,omitempty" validate:"gte=0,lte=1000" jsonschema:"Maximum number of results (default 10, at most 1000)."`
	UseGraph         *bool  `json:"useGraph,omitempty" jsonschema:"Expand seeds one relation hop (default true)."`
	IncludeDocuments *bool  `json:"includeDocuments,omitempty" jsonschema:"Search document chunks (default true)."`
	IncludeEntities  *bool  `json:"includeEntities,omitempty" jsonschema:"Search entities (default true)."`
}

type HybridSearchResult struct {
	Results []SearchHit `json:"results"`
}

type GetKnowledgeGraphStatsArgs struct{}

// NeighborsArgs represents arguments for fetching 1-hop neighbors
// Direction may be "out", "in", or "both" (default "both").
type NeighborsArgs struct {
	Names     []string `json:"names" validate:"required,min=1" jsonschema:"Seed entity names to expand from."`
	Direction string   `json:"direction,omitempty" validate:"omitempty,oneof=out in both" jsonschema:"Which direction of edges to follow: out|in|both (default both)."`
	Limit     int      `json:"limit,omitempty" validate:"gte=0" jsonschema:"Maximum number of neighbor entities to return (per seed)."`
}

// WalkArgs represents arguments for bounded-depth graph expansion from seeds.
type WalkArgs struct {
	Names     []string `json:"names" validate:"required,min=1" jsonschema:"Seed entity names to start from."`
	MaxDepth  int      `json:"maxDepth,omitempty" validate:"gte=0" jsonschema:"Maximum hop depth (default 1)."`
	Direction string   `json:"direction,omitempty" validate:"omitempty,oneof=out in both" jsonschema:"out|in|both (default both)."`
	Limit     int      `json:"limit,omitempty" validate:"gte=0" jsonschema:"Optional limit on entities returned."`
}

// ShortestPathArgs represents arguments for computing a shortest path between two nodes.
type ShortestPathArgs struct {
	From      string `json:"from" validate:"required" jsonschema:"Source entity name."`
	To        string `json:"to" validate:"required" jsonschema:"Target entity name."`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=out in both" jsonschema:"out|in|both (default both)."`
}

type PathResult struct {
	Path      []string   `json:"path"`
	Relations []Relation `json:"relations"`
}

// Health

type HealthArgs struct{}

type HealthResult struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Revision      string `json:"revision"`
	BuildDate     string `json:"buildDate"`
	Engine        string `json:"engine"`
	Database      string `json:"database"`
	State         string `json:"state"`
	Ready         bool   `json:"ready"`
	SchemaVersion int    `json:"schemaVersion"`
	EmbeddingDims int    `json:"embeddingDims"`
	Provider      string `json:"provider,omitempty"`
	Tokenizer     string `json:"tokenizer,omitempty"`
}

type MigrationStatusArgs struct{}

type MigrationStatusResult struct {
	Database       string          `json:"database"`
	CurrentVersion int             `json:"currentVersion"`
	Migrations     []MigrationInfo `json:"migrations"`
}
