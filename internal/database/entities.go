package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// UnknownEntityType is given to entities created implicitly by a relation.
const UnknownEntityType = "unknown"

// CreateEntities inserts entities whose names do not exist yet and returns
// only those. Existing names, and repeats within the batch after the first,
// are skipped without error so retries are safe.
func (s *Store) CreateEntities(ctx context.Context, entities []apptype.Entity) ([]apptype.Entity, error) {
	const op = "create_entities"
	done := metrics.TimeOp("db_create_entities")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entities))
	batch := make([]apptype.Entity, 0, len(entities))
	for _, e := range entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, errs.Validation(op, "entity name must be a non-empty string")
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		entityType := strings.TrimSpace(e.EntityType)
		if entityType == "" {
			entityType = UnknownEntityType
		}
		batch = append(batch, apptype.Entity{Name: name, EntityType: entityType, Observations: uniqueStrings(e.Observations)})
	}

	names := make([]string, len(batch))
	for i, e := range batch {
		names[i] = e.Name
	}
	existing, err := s.existingEntities(ctx, names)
	if err != nil {
		return nil, s.wrapErr(op, err)
	}
	candidates := batch[:0]
	for _, e := range batch {
		if !existing[e.Name] {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		success = true
		return []apptype.Entity{}, nil
	}

	texts := make([]string, len(candidates))
	for i, e := range candidates {
		texts[i] = entityText(e.Name, e.Observations)
	}
	vecs, err := s.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	created := make([]apptype.Entity, 0, len(candidates))
	err = s.tx(ctx, func(tx *sql.Tx) error {
		ts := now()
		insert := s.q(fmt.Sprintf(`INSERT INTO entities (name, entity_type, embedding, created_at, updated_at)
            VALUES (?, ?, %s, ?, ?) ON CONFLICT (name) DO NOTHING`, s.dialect.VectorPlaceholder()))
		for i, e := range candidates {
			vec, err := s.dialect.VectorArg(vecs[i])
			if err != nil {
				return fmt.Errorf("failed to convert embedding for entity %q: %w", e.Name, err)
			}
			res, err := tx.ExecContext(ctx, insert, e.Name, e.EntityType, vec, ts, ts)
			if err != nil {
				return fmt.Errorf("failed to insert entity %q: %w", e.Name, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				// Created concurrently since the existence check.
				continue
			}
			if err := s.insertObservations(ctx, tx, e.Name, e.Observations, ts); err != nil {
				return err
			}
			e.CreatedAt, e.UpdatedAt = ts, ts
			created = append(created, e)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrapErr(op, err)
	}
	success = true
	return created, nil
}

// DeleteEntities removes entities with their observations, every relation
// touching them and their document links. Unknown names are ignored.
func (s *Store) DeleteEntities(ctx context.Context, names []string) (int, error) {
	const op = "delete_entities"
	done := metrics.TimeOp("db_delete_entities")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return 0, err
	}
	names = uniqueStrings(names)
	if len(names) == 0 {
		success = true
		return 0, nil
	}

	deleted := 0
	err := s.tx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(names); start += maxInArgs {
			part := names[start:min(start+maxInArgs, len(names))]
			in := placeholders(len(part))
			args := stringArgs(part)
			steps := []struct {
				query string
				args  []any
			}{
				{"DELETE FROM entity_chunk_links WHERE entity_name IN (" + in + ")", args},
				{"DELETE FROM relations WHERE source IN (" + in + ") OR target IN (" + in + ")", append(append([]any{}, args...), args...)},
				{"DELETE FROM observations WHERE entity_name IN (" + in + ")", args},
			}
			for _, step := range steps {
				if _, err := tx.ExecContext(ctx, s.q(step.query), step.args...); err != nil {
					return fmt.Errorf("failed to cascade entity delete: %w", err)
				}
			}
			res, err := tx.ExecContext(ctx, s.q("DELETE FROM entities WHERE name IN ("+in+")"), args...)
			if err != nil {
				return fmt.Errorf("failed to delete entities: %w", err)
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

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// existingEntities reports which of names exist.
func (s *Store) existingEntities(ctx context.Context, names []string) (map[string]bool, error) {
	return s.existingEntitiesIn(ctx, s.db, names)
}

func (s *Store) existingEntitiesIn(ctx context.Context, db queryer, names []string) (map[string]bool, error) {
	found := make(map[string]bool, len(names))
	for start := 0; start < len(names); start += maxInArgs {
		part := names[start:min(start+maxInArgs, len(names))]
		rows, err := db.QueryContext(ctx, s.q("SELECT name FROM entities WHERE name IN ("+placeholders(len(part))+")"), stringArgs(part)...)
		if err != nil {
			return nil, fmt.Errorf("failed to check entity existence: %w", err)
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan entity name: %w", err)
			}
			found[name] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read entity names: %w", err)
		}
	}
	return found, nil
}

// GetEntities loads entities with their observations in name order. Missing
// names are skipped.
func (s *Store) GetEntities(ctx context.Context, names []string) ([]apptype.Entity, error) {
	const op = "get_entities"
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	names = uniqueStrings(names)
	if len(names) == 0 {
		return []apptype.Entity{}, nil
	}
	if len(names) <= maxInArgs {
		ents, err := s.loadEntities(ctx, "WHERE name IN ("+placeholders(len(names))+")", stringArgs(names)...)
		return ents, s.wrapErr(op, err)
	}
	var out []apptype.Entity
	for start := 0; start < len(names); start += maxInArgs {
		part := names[start:min(start+maxInArgs, len(names))]
		ents, err := s.loadEntities(ctx, "WHERE name IN ("+placeholders(len(part))+")", stringArgs(part)...)
		if err != nil {
			return nil, s.wrapErr(op, err)
		}
		out = append(out, ents...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// loadEntities reads entities matching where and attaches observations.
func (s *Store) loadEntities(ctx context.Context, where string, args ...any) ([]apptype.Entity, error) {
	rows, err := s.db.QueryContext(ctx, s.q("SELECT name, entity_type, created_at, updated_at FROM entities "+where+" ORDER BY name"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	var entities []apptype.Entity
	index := map[string]int{}
	for rows.Next() {
		var e apptype.Entity
		var createdAt, updatedAt sql.NullString
		if err := rows.Scan(&e.Name, &e.EntityType, &createdAt, &updatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e.CreatedAt, e.UpdatedAt = createdAt.String, updatedAt.String
		e.Observations = []string{}
		index[e.Name] = len(entities)
		entities = append(entities, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return []apptype.Entity{}, nil
	}

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	for start := 0; start < len(names); start += maxInArgs {
		end := min(start+maxInArgs, len(names))
		part := names[start:end]
		obsRows, err := s.db.QueryContext(ctx,
			s.q("SELECT entity_name, content FROM observations WHERE entity_name IN ("+placeholders(len(part))+") ORDER BY entity_name, id"),
			stringArgs(part)...)
		if err != nil {
			return nil, fmt.Errorf("failed to query observations: %w", err)
		}
		for obsRows.Next() {
			var name, content string
			if err := obsRows.Scan(&name, &content); err != nil {
				obsRows.Close()
				return nil, fmt.Errorf("failed to scan observation: %w", err)
			}
			if i, ok := index[name]; ok {
				entities[i].Observations = append(entities[i].Observations, content)
			}
		}
		obsRows.Close()
		if err := obsRows.Err(); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// maxInArgs bounds IN lists built from loaded rows.
const maxInArgs = 500

// uniqueStrings drops empty and repeated values, keeping first occurrences.
func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
