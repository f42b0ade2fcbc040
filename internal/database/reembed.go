package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// ReEmbedEverything recomputes the embedding of every entity and chunk with
// the current provider. Rows are walked in key order in batches of
// ReEmbedBatchSize and every batch commits on its own, so an interrupted
// run can simply be started again.
func (s *Store) ReEmbedEverything(ctx context.Context) (*apptype.ReEmbedResult, error) {
	const op = "re_embed_everything"
	done := metrics.TimeOp("db_re_embed")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	if _, err := s.resources(ctx); err != nil {
		return nil, err
	}
	size := max(s.cfg.ReEmbedBatchSize, 1)
	result := &apptype.ReEmbedResult{}

	after := ""
	for {
		entities, err := s.loadEntities(ctx, "WHERE name IN (SELECT name FROM entities WHERE name > ? ORDER BY name LIMIT ?)", after, size)
		if err != nil {
			return nil, s.wrapErr(op, err)
		}
		if len(entities) == 0 {
			break
		}
		texts := make([]string, len(entities))
		for i, e := range entities {
			texts[i] = entityText(e.Name, e.Observations)
		}
		vecs, err := s.embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		err = s.tx(ctx, func(tx *sql.Tx) error {
			ts := now()
			for i, e := range entities {
				if err := s.updateEmbedding(ctx, tx, e.Name, vecs[i], ts); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, s.wrapErr(op, err)
		}
		result.Entities += len(entities)
		result.Batches++
		after = entities[len(entities)-1].Name
		if len(entities) < size {
			break
		}
	}

	after = ""
	update := s.q(fmt.Sprintf("UPDATE chunks SET embedding = %s WHERE id = ?", s.dialect.VectorPlaceholder()))
	for {
		chunks, err := s.queryChunkPage(ctx, after, size)
		if err != nil {
			return nil, s.wrapErr(op, err)
		}
		if len(chunks) == 0 {
			break
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vecs, err := s.embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		err = s.tx(ctx, func(tx *sql.Tx) error {
			for i, c := range chunks {
				vec, err := s.dialect.VectorArg(vecs[i])
				if err != nil {
					return fmt.Errorf("failed to convert embedding for chunk %s: %w", c.ID, err)
				}
				if _, err := tx.ExecContext(ctx, update, vec, c.ID); err != nil {
					return fmt.Errorf("failed to update chunk %s: %w", c.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, s.wrapErr(op, err)
		}
		result.Chunks += len(chunks)
		result.Batches++
		after = chunks[len(chunks)-1].ID
		if len(chunks) < size {
			break
		}
	}

	logger.Info("re-embedded database", "database", s.Database(), "entities", result.Entities, "chunks", result.Chunks, "batches", result.Batches)
	success = true
	return result, nil
}

// queryChunkPage returns up to size chunks with ids after the given one.
func (s *Store) queryChunkPage(ctx context.Context, after string, size int) ([]apptype.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, s.q("SELECT id, text FROM chunks WHERE id > ? ORDER BY id LIMIT ?"), after, size)
	if err != nil {
		return nil, fmt.Errorf("failed to page chunks: %w", err)
	}
	defer rows.Close()
	var chunks []apptype.Chunk
	for rows.Next() {
		var c apptype.Chunk
		if err := rows.Scan(&c.ID, &c.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
