package memory

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/chunking"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/database"
)

// Types shared with the MCP surface.
type (
	Entity              = apptype.Entity
	Relation            = apptype.Relation
	Document            = apptype.Document
	Chunk               = apptype.Chunk
	ObservationAddition = apptype.ObservationAddition
	ObservationDeletion = apptype.ObservationDeletion
	BatchReport         = apptype.BatchReport
	SearchHit           = apptype.SearchHit
	DatabaseInfo        = apptype.DatabaseInfo
	GraphStats          = apptype.GraphStats
	DetailedContext     = apptype.DetailedContext
	PathResult          = apptype.PathResult
	HealthResult        = apptype.HealthResult
	HybridQuery         = database.HybridQuery
	StoreDocumentInput  = database.StoreDocumentInput
	StoreDocumentResult = apptype.StoreDocumentResult
	LinkEntitiesResult  = apptype.LinkEntitiesResult
	ReEmbedResult       = apptype.ReEmbedResult
	Term                = chunking.Term
	TermOptions         = chunking.TermOptions
)

// Embedder produces fixed-size vectors for texts. Results align with inputs.
type Embedder interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Option customizes NewService.
type Option func(*serviceOptions)

type serviceOptions struct {
	embedder Embedder
}

// WithEmbedder uses e instead of the provider selected by EMBEDDINGS_PROVIDER.
func WithEmbedder(e Embedder) Option {
	return func(o *serviceOptions) { o.embedder = e }
}

// Service provides a library-first API for memory operations without MCP transport.
type Service struct {
	db *database.DBManager
}

// NewService constructs a Service with the provided config.
func NewService(ctx context.Context, cfg *Config, opts ...Option) (*Service, error) {
	o := &serviceOptions{}
	for _, opt := range opts {
		opt(o)
	}
	internal := cfg.toInternal()
	var dbOpts []database.Option
	if o.embedder != nil {
		tok, err := chunking.NewTokenizer(internal.Tokenizer, internal.TokenizerEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to create tokenizer: %w", err)
		}
		dbOpts = append(dbOpts, database.WithResources(&database.Resources{Provider: o.embedder, Tokenizer: tok}))
	}
	dm, err := database.NewDBManager(ctx, internal, dbOpts...)
	if err != nil {
		return nil, err
	}
	return &Service{db: dm}, nil
}

// Close releases resources.
func (s *Service) Close() error { return s.db.Close() }

// Ready reports whether embedding resources are loaded.
func (s *Service) Ready() bool { return s.db.Ready() }

// Health summarizes the service.
func (s *Service) Health(ctx context.Context) *HealthResult { return s.db.Health(ctx) }

// Databases

func (s *Service) ListDatabases(ctx context.Context) ([]DatabaseInfo, error) {
	return s.db.ListDatabases(ctx)
}

func (s *Service) CurrentDatabase() string { return s.db.CurrentDatabase() }

// SwitchDatabase makes name the active database and returns the previous one.
func (s *Service) SwitchDatabase(ctx context.Context, name string) (string, error) {
	res, err := s.db.Switch(ctx, name)
	if err != nil {
		return "", err
	}
	return res.Previous, nil
}

// Graph

// CreateEntities inserts entities and returns the ones that did not exist yet.
func (s *Service) CreateEntities(ctx context.Context, ents []Entity) ([]Entity, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.CreateEntities(ctx, ents)
}

// CreateRelations inserts relations, creating missing endpoints.
func (s *Service) CreateRelations(ctx context.Context, rels []Relation) (*BatchReport, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.CreateRelations(ctx, rels)
}

// AddObservations appends observations to entities.
func (s *Service) AddObservations(ctx context.Context, additions []ObservationAddition) (*BatchReport, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.AddObservations(ctx, additions)
}

func (s *Service) DeleteEntities(ctx context.Context, names []string) (int, error) {
	store, err := s.db.Store()
	if err != nil {
		return 0, err
	}
	return store.DeleteEntities(ctx, names)
}

func (s *Service) DeleteRelations(ctx context.Context, rels []Relation) (int, error) {
	store, err := s.db.Store()
	if err != nil {
		return 0, err
	}
	return store.DeleteRelations(ctx, rels)
}

func (s *Service) DeleteObservations(ctx context.Context, deletions []ObservationDeletion) (*BatchReport, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.DeleteObservations(ctx, deletions)
}

// SearchNodes ranks entities and chunks by similarity to query.
func (s *Service) SearchNodes(ctx context.Context, query string, types []string, limit int) ([]SearchHit, []Relation, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, nil, err
	}
	return store.SearchNodes(ctx, query, types, limit)
}

// HybridSearch combines similarity search with one hop of graph expansion.
func (s *Service) HybridSearch(ctx context.Context, q HybridQuery) ([]SearchHit, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.HybridSearch(ctx, q)
}

// OpenNodes fetches entities by name with their relations.
func (s *Service) OpenNodes(ctx context.Context, names []string) ([]Entity, []Relation, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, nil, err
	}
	return store.OpenNodes(ctx, names)
}

// ReadGraph returns every entity and relation.
func (s *Service) ReadGraph(ctx context.Context) ([]Entity, []Relation, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, nil, err
	}
	return store.ReadGraph(ctx)
}

// Graph helpers
func (s *Service) Neighbors(ctx context.Context, names []string, direction string, limit int) ([]Entity, []Relation, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, nil, err
	}
	return store.Neighbors(ctx, names, direction, limit)
}

func (s *Service) Walk(ctx context.Context, names []string, maxDepth int, direction string, limit int) ([]Entity, []Relation, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, nil, err
	}
	return store.Walk(ctx, names, maxDepth, direction, limit)
}

func (s *Service) ShortestPath(ctx context.Context, from, to, direction string) (*PathResult, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.ShortestPath(ctx, from, to, direction)
}

func (s *Service) Stats(ctx context.Context) (*GraphStats, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.GetKnowledgeGraphStats(ctx)
}

// Documents

// StoreDocument chunks, embeds and stores a document.
func (s *Service) StoreDocument(ctx context.Context, in StoreDocumentInput) (*StoreDocumentResult, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.StoreDocument(ctx, in)
}

func (s *Service) ListDocuments(ctx context.Context, includeMetadata bool) ([]Document, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.ListDocuments(ctx, includeMetadata)
}

func (s *Service) DeleteDocuments(ctx context.Context, ids []string) (deleted, missing []string, err error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, nil, err
	}
	return store.DeleteDocuments(ctx, ids)
}

func (s *Service) ExtractTerms(ctx context.Context, documentID string, opts TermOptions) ([]Term, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.ExtractTerms(ctx, documentID, opts)
}

func (s *Service) LinkEntitiesToDocument(ctx context.Context, documentID string, names []string) (*LinkEntitiesResult, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.LinkEntitiesToDocument(ctx, documentID, names)
}

func (s *Service) GetDetailedContext(ctx context.Context, chunkID string, surrounding int) (*DetailedContext, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.GetDetailedContext(ctx, chunkID, surrounding)
}

func (s *Service) ReEmbedEverything(ctx context.Context) (*ReEmbedResult, error) {
	store, err := s.db.Store()
	if err != nil {
		return nil, err
	}
	return store.ReEmbedEverything(ctx)
}
