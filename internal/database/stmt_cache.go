package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// preparedStmt returns or prepares and caches a statement on the store's
// handle. The cache lives and dies with the store.
func (s *Store) preparedStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	query = s.dialect.Rebind(query)

	// fast path read
	s.stmtMu.RLock()
	if stmt, ok := s.stmts[query]; ok {
		s.stmtMu.RUnlock()
		metrics.Default().IncStmtCacheHit("prepare")
		return stmt, nil
	}
	s.stmtMu.RUnlock()
	metrics.Default().IncStmtCacheMiss("prepare")

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	if existing, ok := s.stmts[query]; ok {
		stmt.Close()
		return existing, nil
	}
	s.stmts[query] = stmt
	return stmt, nil
}

func (s *Store) closeStmts() {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	for q, stmt := range s.stmts {
		stmt.Close()
		delete(s.stmts, q)
	}
}
