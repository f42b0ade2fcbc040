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

func relationKey(r apptype.Relation) string {
	return fmt.Sprintf("%s -[%s]-> %s", r.From, r.RelationType, r.To)
}

// CreateRelations upserts edges keyed by (from, to, type). Missing endpoints
// are created with type "unknown" and no observations. Each relation is
// written in its own transaction and reported separately.
func (s *Store) CreateRelations(ctx context.Context, relations []apptype.Relation) (*apptype.BatchReport, error) {
	const op = "create_relations"
	done := metrics.TimeOp("db_create_relations")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	report := newBatchReport(len(relations))
	valid := make([]bool, len(relations))
	cleaned := make([]apptype.Relation, len(relations))
	var endpoints []string
	for i, r := range relations {
		r.From, r.To, r.RelationType = strings.TrimSpace(r.From), strings.TrimSpace(r.To), strings.TrimSpace(r.RelationType)
		cleaned[i] = r
		report.Items[i].Key = relationKey(r)
		if r.From == "" || r.To == "" || r.RelationType == "" {
			report.fail(i, errs.Validation(op, "relation fields cannot be empty"))
			continue
		}
		valid[i] = true
		endpoints = append(endpoints, r.From, r.To)
	}
	endpoints = uniqueStrings(endpoints)

	existing, err := s.existingEntities(ctx, endpoints)
	if err != nil {
		return nil, s.wrapErr(op, err)
	}
	var missing []string
	for _, name := range endpoints {
		if !existing[name] {
			missing = append(missing, name)
		}
	}
	vecs := map[string][]float32{}
	if len(missing) > 0 {
		embedded, err := s.embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		for i, name := range missing {
			vecs[name] = embedded[i]
		}
	}

	insertEntity := s.q(fmt.Sprintf(`INSERT INTO entities (name, entity_type, embedding, created_at, updated_at)
        VALUES (?, ?, %s, ?, ?) ON CONFLICT (name) DO NOTHING`, s.dialect.VectorPlaceholder()))
	insertRelation := s.q(`INSERT INTO relations (source, target, relation_type, created_at)
        VALUES (?, ?, ?, ?) ON CONFLICT (source, target, relation_type) DO NOTHING`)
	for i, r := range cleaned {
		if !valid[i] {
			continue
		}
		changed := 0
		err := s.tx(ctx, func(tx *sql.Tx) error {
			ts := now()
			for _, name := range []string{r.From, r.To} {
				vec, ok := vecs[name]
				if !ok {
					continue
				}
				arg, err := s.dialect.VectorArg(vec)
				if err != nil {
					return fmt.Errorf("failed to convert embedding for entity %q: %w", name, err)
				}
				if _, err := tx.ExecContext(ctx, insertEntity, name, UnknownEntityType, arg, ts, ts); err != nil {
					return fmt.Errorf("failed to create endpoint %q: %w", name, err)
				}
			}
			res, err := tx.ExecContext(ctx, insertRelation, r.From, r.To, r.RelationType, ts)
			if err != nil {
				return fmt.Errorf("failed to insert relation (%s -> %s): %w", r.From, r.To, err)
			}
			n, _ := res.RowsAffected()
			changed = int(n)
			return nil
		})
		if err != nil {
			report.fail(i, s.wrapErr(op, err))
			continue
		}
		report.ok(i, changed)
	}
	success = true
	return report.finish(), nil
}

// DeleteRelations removes exact (from, to, type) matches and returns how many
// edges were deleted.
func (s *Store) DeleteRelations(ctx context.Context, relations []apptype.Relation) (int, error) {
	const op = "delete_relations"
	done := metrics.TimeOp("db_delete_relations")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return 0, err
	}
	if len(relations) == 0 {
		success = true
		return 0, nil
	}

	deleted := 0
	err := s.tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q("DELETE FROM relations WHERE source = ? AND target = ? AND relation_type = ?"))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()
		for _, r := range relations {
			res, err := stmt.ExecContext(ctx, r.From, r.To, r.RelationType)
			if err != nil {
				return fmt.Errorf("failed to delete relation (%s -> %s): %w", r.From, r.To, err)
			}
			n, _ := res.RowsAffected()
			deleted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, s.wrapErr(op, err)
	}
	success = true
	return deleted, nil
}

// relationsTouching returns every relation whose source or target is in
// names, ordered by insertion.
func (s *Store) relationsTouching(ctx context.Context, names []string) ([]apptype.Relation, error) {
	rels := []apptype.Relation{}
	seen := map[apptype.Relation]bool{}
	for start := 0; start < len(names); start += maxInArgs {
		part := names[start:min(start+maxInArgs, len(names))]
		in := placeholders(len(part))
		args := append(stringArgs(part), stringArgs(part)...)
		found, err := s.queryRelations(ctx, "WHERE source IN ("+in+") OR target IN ("+in+")", args...)
		if err != nil {
			return nil, err
		}
		for _, r := range found {
			if !seen[r] {
				seen[r] = true
				rels = append(rels, r)
			}
		}
	}
	return rels, nil
}

func (s *Store) queryRelations(ctx context.Context, where string, args ...any) ([]apptype.Relation, error) {
	rows, err := s.db.QueryContext(ctx, s.q("SELECT source, target, relation_type FROM relations "+where+" ORDER BY id"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()
	rels := []apptype.Relation{}
	for rows.Next() {
		var r apptype.Relation
		if err := rows.Scan(&r.From, &r.To, &r.RelationType); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}
