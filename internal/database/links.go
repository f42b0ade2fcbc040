package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// LinkEntitiesToDocument links every named entity to every chunk of the
// document. The document and all entities must exist; otherwise nothing is
// written. Existing links are left alone.
func (s *Store) LinkEntitiesToDocument(ctx context.Context, documentID string, names []string) (*apptype.LinkEntitiesResult, error) {
	const op = "link_entities_to_document"
	done := metrics.TimeOp("db_link_entities")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	names = uniqueStrings(names)
	if len(names) == 0 {
		return nil, errs.Validation(op, "entityNames must not be empty")
	}

	result := &apptype.LinkEntitiesResult{DocumentID: documentID, Entities: len(names)}
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, s.q("SELECT 1 FROM documents WHERE id = ?"), documentID).Scan(&exists)
		if err == sql.ErrNoRows {
			return errs.NotFound(op, "document %q not found", documentID)
		}
		if err != nil {
			return fmt.Errorf("failed to look up document: %w", err)
		}

		found, err := s.existingEntitiesIn(ctx, tx, names)
		if err != nil {
			return fmt.Errorf("failed to verify entities: %w", err)
		}
		var missing []string
		for _, n := range names {
			if !found[n] {
				missing = append(missing, n)
			}
		}
		if len(missing) > 0 {
			return errs.NotFound(op, "entities not found: %s", strings.Join(missing, ", "))
		}

		var chunkIDs []string
		rows, err := tx.QueryContext(ctx, s.q("SELECT id FROM chunks WHERE document_id = ? ORDER BY position"), documentID)
		if err != nil {
			return fmt.Errorf("failed to list chunks: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan chunk id: %w", err)
			}
			chunkIDs = append(chunkIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to read chunk ids: %w", err)
		}
		result.Chunks = len(chunkIDs)

		stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO entity_chunk_links (entity_name, chunk_id, created_at)
            VALUES (?, ?, ?) ON CONFLICT (entity_name, chunk_id) DO NOTHING`))
		if err != nil {
			return fmt.Errorf("failed to prepare link insert: %w", err)
		}
		defer stmt.Close()
		ts := now()
		for _, name := range names {
			for _, chunkID := range chunkIDs {
				res, err := stmt.ExecContext(ctx, name, chunkID, ts)
				if err != nil {
					return fmt.Errorf("failed to link %q to chunk %s: %w", name, chunkID, err)
				}
				n, _ := res.RowsAffected()
				result.LinksCreated += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.wrapErr(op, err)
	}
	success = true
	return result, nil
}
