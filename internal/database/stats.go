package database

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
)

// GetKnowledgeGraphStats counts the rows of every table of the active
// database and breaks entities down by type.
func (s *Store) GetKnowledgeGraphStats(ctx context.Context) (*apptype.GraphStats, error) {
	const op = "get_knowledge_graph_stats"
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	stats := &apptype.GraphStats{EntitiesByType: map[string]int{}}
	counts := []struct {
		table string
		dst   *int
	}{
		{"entities", &stats.Entities},
		{"relations", &stats.Relations},
		{"observations", &stats.Observations},
		{"documents", &stats.Documents},
		{"chunks", &stats.Chunks},
		{"entity_chunk_links", &stats.Links},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, s.wrapErr(op, fmt.Errorf("failed to count %s: %w", c.table, err))
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT entity_type, COUNT(*) FROM entities GROUP BY entity_type")
	if err != nil {
		return nil, s.wrapErr(op, fmt.Errorf("failed to group entities: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var entityType string
		var n int
		if err := rows.Scan(&entityType, &n); err != nil {
			return nil, s.wrapErr(op, fmt.Errorf("failed to scan entity type count: %w", err))
		}
		stats.EntitiesByType[entityType] = n
	}
	return stats, s.wrapErr(op, rows.Err())
}
