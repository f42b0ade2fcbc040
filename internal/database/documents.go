package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/chunking"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// StoreDocumentInput describes a document to store. Nil MaxTokens and
// Overlap fall back to the configured chunking defaults.
type StoreDocumentInput struct {
	ID        string
	Content   string
	Metadata  map[string]any
	MaxTokens *int
	Overlap   *int
}

// chunkOptions resolves the window for in.
func (s *Store) chunkOptions(in StoreDocumentInput) chunking.Options {
	opts := chunking.Options{MaxTokens: s.cfg.ChunkMaxTokens, Overlap: s.cfg.ChunkOverlap}
	if in.MaxTokens != nil {
		opts.MaxTokens = *in.MaxTokens
	}
	if in.Overlap != nil {
		opts.Overlap = *in.Overlap
	} else if opts.Overlap >= opts.MaxTokens {
		opts.Overlap = 0
	}
	return opts
}

// StoreDocument splits content into overlapping token windows, embeds every
// chunk and stores them under the document id, replacing any previous
// chunks and links of that id. All embeddings are computed before the first
// write; chunks are then committed in batches of ChunkCommitBatch.
func (s *Store) StoreDocument(ctx context.Context, in StoreDocumentInput) (*apptype.StoreDocumentResult, error) {
	const op = "store_document"
	done := metrics.TimeOp("db_store_document")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	opts := s.chunkOptions(in)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, errs.Validation(op, "content must be a non-empty string")
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	var metadata sql.NullString
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, errs.Validation(op, "metadata is not serializable: %v", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	res, err := s.resources(ctx)
	if err != nil {
		return nil, err
	}
	pieces, err := chunking.Split(res.Tokenizer, in.Content, opts)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}
	vecs, err := s.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(pieces))
	for i := range pieces {
		if ids[i], err = gonanoid.New(); err != nil {
			return nil, errs.Wrap(errs.KindInternal, op, err, "failed to generate chunk id")
		}
	}

	replaced := false
	err = s.tx(ctx, func(tx *sql.Tx) error {
		ts := now()
		var exists int
		err := tx.QueryRowContext(ctx, s.q("SELECT 1 FROM documents WHERE id = ?"), id).Scan(&exists)
		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx, s.q("INSERT INTO documents (id, content, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"),
				id, in.Content, metadata, ts, ts)
		case err == nil:
			replaced = true
			_, err = tx.ExecContext(ctx, s.q("UPDATE documents SET content = ?, metadata = ?, updated_at = ? WHERE id = ?"),
				in.Content, metadata, ts, id)
		}
		if err != nil {
			return fmt.Errorf("failed to write document %q: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, s.q("DELETE FROM entity_chunk_links WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)"), id); err != nil {
			return fmt.Errorf("failed to delete old links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q("DELETE FROM chunks WHERE document_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete old chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrapErr(op, err)
	}

	batch := max(s.cfg.ChunkCommitBatch, 1)
	insert := s.q(fmt.Sprintf("INSERT INTO chunks (id, document_id, position, text, token_count, embedding) VALUES (?, ?, ?, ?, ?, %s)",
		s.dialect.VectorPlaceholder()))
	for start := 0; start < len(pieces); start += batch {
		end := min(start+batch, len(pieces))
		err := s.tx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, insert)
			if err != nil {
				return fmt.Errorf("failed to prepare chunk insert: %w", err)
			}
			defer stmt.Close()
			for i := start; i < end; i++ {
				vec, err := s.dialect.VectorArg(vecs[i])
				if err != nil {
					return fmt.Errorf("failed to convert embedding for chunk %d: %w", i, err)
				}
				p := pieces[i]
				if _, err := stmt.ExecContext(ctx, ids[i], id, p.Position, p.Text, p.TokenCount, vec); err != nil {
					return fmt.Errorf("failed to insert chunk %d: %w", p.Position, err)
				}
			}
			return nil
		})
		if err != nil {
			logger.Warn("document stored partially; store it again to finish", "document", id, "committed", start, "chunks", len(pieces))
			return nil, s.wrapErr(op, err)
		}
	}

	success = true
	return &apptype.StoreDocumentResult{DocumentID: id, ChunkCount: len(pieces), ChunkIDs: ids, Replaced: replaced}, nil
}

// ListDocuments lists documents by id with their chunk counts. Content is
// never included.
func (s *Store) ListDocuments(ctx context.Context, includeMetadata bool) ([]apptype.Document, error) {
	const op = "list_documents"
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT d.id, d.metadata, d.created_at, d.updated_at,
        (SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)
        FROM documents d ORDER BY d.id`)
	if err != nil {
		return nil, s.wrapErr(op, fmt.Errorf("failed to list documents: %w", err))
	}
	defer rows.Close()
	docs := []apptype.Document{}
	for rows.Next() {
		var d apptype.Document
		var metadata, createdAt, updatedAt sql.NullString
		if err := rows.Scan(&d.ID, &metadata, &createdAt, &updatedAt, &d.ChunkCount); err != nil {
			return nil, s.wrapErr(op, fmt.Errorf("failed to scan document: %w", err))
		}
		d.CreatedAt, d.UpdatedAt = createdAt.String, updatedAt.String
		if includeMetadata && metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &d.Metadata); err != nil {
				logger.Warn("failed to decode document metadata", "document", d.ID, "error", err)
			}
		}
		docs = append(docs, d)
	}
	return docs, s.wrapErr(op, rows.Err())
}

// DeleteDocuments removes documents with their chunks and links. It reports
// which ids were deleted and which did not exist.
func (s *Store) DeleteDocuments(ctx context.Context, ids []string) (deleted, missing []string, err error) {
	const op = "delete_documents"
	done := metrics.TimeOp("db_delete_documents")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, nil, err
	}
	deleted, missing = []string{}, []string{}
	ids = uniqueStrings(ids)
	err = s.tx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			steps := []string{
				"DELETE FROM entity_chunk_links WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)",
				"DELETE FROM chunks WHERE document_id = ?",
			}
			for _, q := range steps {
				if _, err := tx.ExecContext(ctx, s.q(q), id); err != nil {
					return fmt.Errorf("failed to cascade delete of document %q: %w", id, err)
				}
			}
			res, err := tx.ExecContext(ctx, s.q("DELETE FROM documents WHERE id = ?"), id)
			if err != nil {
				return fmt.Errorf("failed to delete document %q: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				deleted = append(deleted, id)
			} else {
				missing = append(missing, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, s.wrapErr(op, err)
	}
	success = true
	return deleted, missing, nil
}

// ExtractTerms runs the lexical term heuristics over a stored document.
func (s *Store) ExtractTerms(ctx context.Context, documentID string, opts chunking.TermOptions) ([]chunking.Term, error) {
	const op = "extract_terms"
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	var content string
	err := s.db.QueryRowContext(ctx, s.q("SELECT content FROM documents WHERE id = ?"), documentID).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound(op, "document %q not found", documentID)
	}
	if err != nil {
		return nil, s.wrapErr(op, err)
	}
	return chunking.ExtractTerms(content, opts)
}

// loadChunks fetches chunks by id without embeddings.
func (s *Store) loadChunks(ctx context.Context, ids []string) (map[string]*apptype.Chunk, error) {
	chunks := make(map[string]*apptype.Chunk, len(ids))
	for start := 0; start < len(ids); start += maxInArgs {
		part := ids[start:min(start+maxInArgs, len(ids))]
		found, err := s.queryChunks(ctx, "WHERE id IN ("+placeholders(len(part))+")", stringArgs(part)...)
		if err != nil {
			return nil, err
		}
		for i := range found {
			chunks[found[i].ID] = &found[i]
		}
	}
	return chunks, nil
}

func (s *Store) queryChunks(ctx context.Context, where string, args ...any) ([]apptype.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, s.q("SELECT id, document_id, position, text, token_count FROM chunks "+where+" ORDER BY document_id, position"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()
	chunks := []apptype.Chunk{}
	for rows.Next() {
		var c apptype.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Position, &c.Text, &c.TokenCount); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
