package apptype

// Entity represents a node in the knowledge graph
type Entity struct {
	Name         string    `json:"name" validate:"required" jsonschema:"Unique entity name."`
	EntityType   string    `json:"entityType" jsonschema:"Free-form entity type, e.g. person or project."`
	Observations []string  `json:"observations" jsonschema:"Ordered facts about the entity."`
	Embedding    []float32 `json:"embedding,omitempty" jsonschema:"Entity embedding, only returned on request."`
	CreatedAt    string    `json:"createdAt,omitempty"`
	UpdatedAt    string    `json:"updatedAt,omitempty"`
}

// Relation represents a directed relationship between two entities
type Relation struct {
	From         string `json:"from" validate:"required" jsonschema:"Source entity name."`
	To           string `json:"to" validate:"required" jsonschema:"Target entity name."`
	RelationType string `json:"relationType" validate:"required" jsonschema:"Relation type in active voice."`
}

// Document is a stored text split into chunks.
type Document struct {
	ID         string         `json:"id"`
	Content    string         `json:"content,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ChunkCount int            `json:"chunkCount"`
	CreatedAt  string         `json:"createdAt,omitempty"`
	UpdatedAt  string         `json:"updatedAt,omitempty"`
}

// Chunk is one token-bounded window of a document.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Position   int       `json:"position"`
	Text       string    `json:"text"`
	TokenCount int       `json:"tokenCount"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// ObservationAddition appends observations to one entity.
type ObservationAddition struct {
	EntityName string   `json:"entityName" validate:"required" jsonschema:"Entity to add observations to."`
	Contents   []string `json:"contents" validate:"required,min=1" jsonschema:"Observations to append. Exact duplicates are ignored."`
}

// ObservationDeletion removes observations from one entity by exact match.
type ObservationDeletion struct {
	EntityName   string   `json:"entityName" validate:"required" jsonschema:"Entity to remove observations from."`
	Observations []string `json:"observations" validate:"required,min=1" jsonschema:"Observations to remove."`
}

// BatchItem is the outcome of one element of a batch operation.
type BatchItem struct {
	Index     int    `json:"index"`
	Key       string `json:"key"`
	OK        bool   `json:"ok"`
	Changed   int    `json:"changed"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// BatchReport collects per-item outcomes; one failing item never aborts the rest.
type BatchReport struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// Node kinds returned by search.
const (
	KindEntity = "entity"
	KindChunk  = "chunk"
)

// SearchHit is one ranked search result. Via names the entity a graph-expanded
// hit was reached from.
type SearchHit struct {
	Kind   string  `json:"kind"`
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Direct bool    `json:"direct"`
	Via    string  `json:"via,omitempty"`
	Entity *Entity `json:"entity,omitempty"`
	Chunk  *Chunk  `json:"chunk,omitempty"`
}

// DatabaseInfo describes one logical database.
type DatabaseInfo struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// GraphStats aggregates counts over the active database.
type GraphStats struct {
	Entities       int            `json:"entities"`
	Relations      int            `json:"relations"`
	Observations   int            `json:"observations"`
	Documents      int            `json:"documents"`
	Chunks         int            `json:"chunks"`
	Links          int            `json:"links"`
	EntitiesByType map[string]int `json:"entitiesByType"`
}

// MigrationInfo reports one registered migration.
type MigrationInfo struct {
	Version   int    `json:"version"`
	Name      string `json:"name"`
	Applied   bool   `json:"applied"`
	AppliedAt string `json:"appliedAt,omitempty"`
}
