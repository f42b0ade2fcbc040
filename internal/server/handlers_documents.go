package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/chunking"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/database"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// handleStoreDocument handles the store_document tool call
func (s *MCPServer) handleStoreDocument(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.StoreDocumentArgs],
) (*mcp.CallToolResultFor[apptype.StoreDocumentResult], error) {
	done := metrics.TimeTool("store_document")
	var success bool
	defer func() { done(success) }()

	if err := s.check("store_document", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("store_document")
	if err != nil {
		return nil, err
	}
	args := params.Arguments
	res, err := store.StoreDocument(ctx, database.StoreDocumentInput{
		ID:        args.ID,
		Content:   args.Content,
		Metadata:  args.Metadata,
		MaxTokens: args.MaxTokens,
		Overlap:   args.Overlap,
	})
	if err != nil {
		return nil, errs.WithCommand("store_document", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.StoreDocumentResult]{
		Content:           text("Stored document %s in %d chunks", res.DocumentID, res.ChunkCount),
		StructuredContent: *res,
	}, nil
}

func (s *MCPServer) handleExtractTerms(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ExtractTermsArgs],
) (*mcp.CallToolResultFor[apptype.ExtractTermsResult], error) {
	done := metrics.TimeTool("extract_terms")
	var success bool
	defer func() { done(success) }()

	if err := s.check("extract_terms", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("extract_terms")
	if err != nil {
		return nil, err
	}
	args := params.Arguments
	terms, err := store.ExtractTerms(ctx, args.DocumentID, chunking.TermOptions{
		Pattern:   args.Pattern,
		MinLength: args.MinLength,
		Limit:     args.Limit,
	})
	if err != nil {
		return nil, errs.WithCommand("extract_terms", err)
	}
	out := make([]apptype.ExtractedTerm, len(terms))
	for i, t := range terms {
		out[i] = apptype.ExtractedTerm{Term: t.Term, Frequency: t.Frequency, Source: t.Source}
	}
	success = true
	return &mcp.CallToolResultFor[apptype.ExtractTermsResult]{
		Content:           text("Found %d candidate terms", len(out)),
		StructuredContent: apptype.ExtractTermsResult{DocumentID: args.DocumentID, Terms: out},
	}, nil
}

func (s *MCPServer) handleLinkEntitiesToDocument(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.LinkEntitiesToDocumentArgs],
) (*mcp.CallToolResultFor[apptype.LinkEntitiesResult], error) {
	done := metrics.TimeTool("link_entities_to_document")
	var success bool
	defer func() { done(success) }()

	if err := s.check("link_entities_to_document", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("link_entities_to_document")
	if err != nil {
		return nil, err
	}
	res, err := store.LinkEntitiesToDocument(ctx, params.Arguments.DocumentID, params.Arguments.EntityNames)
	if err != nil {
		return nil, errs.WithCommand("link_entities_to_document", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.LinkEntitiesResult]{
		Content:           text("Linked %d entities to %d chunks (%d new links)", res.Entities, res.Chunks, res.LinksCreated),
		StructuredContent: *res,
	}, nil
}

func (s *MCPServer) handleDeleteDocuments(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteDocumentsArgs],
) (*mcp.CallToolResultFor[apptype.DeleteDocumentsResult], error) {
	done := metrics.TimeTool("delete_documents")
	var success bool
	defer func() { done(success) }()

	if err := s.check("delete_documents", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("delete_documents")
	if err != nil {
		return nil, err
	}
	deleted, missing, err := store.DeleteDocuments(ctx, params.Arguments.DocumentIDs)
	if err != nil {
		return nil, errs.WithCommand("delete_documents", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.DeleteDocumentsResult]{
		Content:           text("Deleted %d documents, %d not found", len(deleted), len(missing)),
		StructuredContent: apptype.DeleteDocumentsResult{Deleted: deleted, Missing: missing},
	}, nil
}

func (s *MCPServer) handleListDocuments(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ListDocumentsArgs],
) (*mcp.CallToolResultFor[apptype.ListDocumentsResult], error) {
	done := metrics.TimeTool("list_documents")
	var success bool
	defer func() { done(success) }()

	store, err := s.store("list_documents")
	if err != nil {
		return nil, err
	}
	docs, err := store.ListDocuments(ctx, params.Arguments.IncludeMetadata)
	if err != nil {
		return nil, errs.WithCommand("list_documents", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.ListDocumentsResult]{
		Content:           text("%d documents", len(docs)),
		StructuredContent: apptype.ListDocumentsResult{Documents: docs},
	}, nil
}

func (s *MCPServer) handleReEmbedEverything(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ReEmbedEverythingArgs],
) (*mcp.CallToolResultFor[apptype.ReEmbedResult], error) {
	done := metrics.TimeTool("re_embed_everything")
	var success bool
	defer func() { done(success) }()

	store, err := s.store("re_embed_everything")
	if err != nil {
		return nil, err
	}
	res, err := store.ReEmbedEverything(ctx)
	if err != nil {
		return nil, errs.WithCommand("re_embed_everything", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.ReEmbedResult]{
		Content:           text("Re-embedded %d entities and %d chunks in %d batches", res.Entities, res.Chunks, res.Batches),
		StructuredContent: *res,
	}, nil
}

// handleGetDetailedContext handles the get_detailed_context tool call
func (s *MCPServer) handleGetDetailedContext(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetDetailedContextArgs],
) (*mcp.CallToolResultFor[apptype.DetailedContext], error) {
	done := metrics.TimeTool("get_detailed_context")
	var success bool
	defer func() { done(success) }()

	if err := s.check("get_detailed_context", params.Arguments); err != nil {
		return nil, err
	}
	store, err := s.store("get_detailed_context")
	if err != nil {
		return nil, err
	}
	surrounding := database.DefaultSurroundingChunks
	if n := params.Arguments.SurroundingChunks; n != nil {
		surrounding = *n
	}
	res, err := store.GetDetailedContext(ctx, params.Arguments.ChunkID, surrounding)
	if err != nil {
		return nil, errs.WithCommand("get_detailed_context", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.DetailedContext]{
		Content:           text("Chunk %s with %d before and %d after", res.Target.ID, res.BeforeCount, res.AfterCount),
		StructuredContent: *res,
	}, nil
}
