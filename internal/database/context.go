package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

// DefaultSurroundingChunks applies when get_detailed_context omits the count.
const DefaultSurroundingChunks = 1

// GetDetailedContext returns a chunk with up to surrounding chunks on each
// side from the same document. Near a document boundary the short side
// simply has fewer chunks.
func (s *Store) GetDetailedContext(ctx context.Context, chunkID string, surrounding int) (*apptype.DetailedContext, error) {
	const op = "get_detailed_context"
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	if surrounding < 0 {
		return nil, errs.Validation(op, "surroundingChunks must be >= 0, got %d", surrounding)
	}

	var target apptype.Chunk
	err := s.db.QueryRowContext(ctx, s.q("SELECT id, document_id, position, text, token_count FROM chunks WHERE id = ?"), chunkID).
		Scan(&target.ID, &target.DocumentID, &target.Position, &target.Text, &target.TokenCount)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound(op, "chunk %q not found", chunkID)
	}
	if err != nil {
		return nil, s.wrapErr(op, fmt.Errorf("failed to load chunk: %w", err))
	}

	out := &apptype.DetailedContext{DocumentID: target.DocumentID, Target: target, Before: []apptype.Chunk{}, After: []apptype.Chunk{}}
	if surrounding > 0 {
		// Clamped so neither bound overflows.
		lo := target.Position - min(surrounding, target.Position)
		hi := target.Position + min(surrounding, math.MaxInt32)
		window, err := s.queryChunks(ctx, "WHERE document_id = ? AND position >= ? AND position <= ? AND id <> ?",
			target.DocumentID, lo, hi, target.ID)
		if err != nil {
			return nil, s.wrapErr(op, err)
		}
		for _, c := range window {
			if c.Position < target.Position {
				out.Before = append(out.Before, c)
			} else {
				out.After = append(out.After, c)
			}
		}
	}
	out.BeforeCount, out.AfterCount = len(out.Before), len(out.After)
	return out, nil
}
