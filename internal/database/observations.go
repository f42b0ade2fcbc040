package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// observationChange is one entity whose observation set is being rewritten.
type observationChange struct {
	item    int
	name    string
	delta   []string
	full    []string
	changed int
}

// AddObservations appends observations that are not already present and
// re-embeds each changed entity over its full set. Items succeed or fail
// independently; an unknown entity fails only its own item.
func (s *Store) AddObservations(ctx context.Context, additions []apptype.ObservationAddition) (*apptype.BatchReport, error) {
	const op = "add_observations"
	done := metrics.TimeOp("db_add_observations")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	report := newBatchReport(len(additions))
	var pending []observationChange
	for i, add := range additions {
		report.Items[i].Key = add.EntityName
		current, found, err := s.entityObservations(ctx, add.EntityName)
		if err != nil {
			report.fail(i, s.wrapErr(op, err))
			continue
		}
		if !found {
			report.fail(i, errs.NotFound(op, "entity %q not found", add.EntityName))
			continue
		}
		have := make(map[string]bool, len(current))
		for _, o := range current {
			have[o] = true
		}
		var fresh []string
		for _, o := range uniqueStrings(add.Contents) {
			if !have[o] {
				fresh = append(fresh, o)
			}
		}
		if len(fresh) == 0 {
			report.ok(i, 0)
			continue
		}
		pending = append(pending, observationChange{
			item:    i,
			name:    add.EntityName,
			delta:   fresh,
			full:    append(append([]string{}, current...), fresh...),
			changed: len(fresh),
		})
	}

	if err := s.applyObservationChanges(ctx, op, pending, report, func(tx *sql.Tx, c observationChange, ts string) error {
		return s.insertObservations(ctx, tx, c.name, c.delta, ts)
	}); err != nil {
		return nil, err
	}
	success = true
	return report.finish(), nil
}

// DeleteObservations removes observations by exact match and re-embeds each
// entity that lost any. Items succeed or fail independently.
func (s *Store) DeleteObservations(ctx context.Context, deletions []apptype.ObservationDeletion) (*apptype.BatchReport, error) {
	const op = "delete_observations"
	done := metrics.TimeOp("db_delete_observations")
	success := false
	defer func() { done(success) }()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	report := newBatchReport(len(deletions))
	var pending []observationChange
	for i, del := range deletions {
		report.Items[i].Key = del.EntityName
		current, found, err := s.entityObservations(ctx, del.EntityName)
		if err != nil {
			report.fail(i, s.wrapErr(op, err))
			continue
		}
		if !found {
			report.fail(i, errs.NotFound(op, "entity %q not found", del.EntityName))
			continue
		}
		drop := make(map[string]bool, len(del.Observations))
		for _, o := range del.Observations {
			drop[o] = true
		}
		remaining := make([]string, 0, len(current))
		var removed []string
		for _, o := range current {
			if drop[o] {
				removed = append(removed, o)
				continue
			}
			remaining = append(remaining, o)
		}
		if len(removed) == 0 {
			report.ok(i, 0)
			continue
		}
		pending = append(pending, observationChange{
			item:    i,
			name:    del.EntityName,
			delta:   uniqueStrings(removed),
			full:    remaining,
			changed: len(removed),
		})
	}

	if err := s.applyObservationChanges(ctx, op, pending, report, func(tx *sql.Tx, c observationChange, _ string) error {
		query := s.q("DELETE FROM observations WHERE entity_name = ? AND content IN (" + placeholders(len(c.delta)) + ")")
		args := append([]any{c.name}, stringArgs(c.delta)...)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete observations: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	success = true
	return report.finish(), nil
}

// applyObservationChanges embeds every pending entity in one provider call,
// then writes each change with its new embedding in its own transaction.
// Only a provider failure aborts the batch.
func (s *Store) applyObservationChanges(ctx context.Context, op string, pending []observationChange, report *batchReport,
	write func(*sql.Tx, observationChange, string) error) error {
	if len(pending) == 0 {
		return nil
	}
	texts := make([]string, len(pending))
	for i, c := range pending {
		texts[i] = entityText(c.name, c.full)
	}
	vecs, err := s.embed(ctx, texts)
	if err != nil {
		return err
	}
	for i, c := range pending {
		err := s.tx(ctx, func(tx *sql.Tx) error {
			ts := now()
			if err := write(tx, c, ts); err != nil {
				return err
			}
			return s.updateEmbedding(ctx, tx, c.name, vecs[i], ts)
		})
		if err != nil {
			report.fail(c.item, s.wrapErr(op, err))
			continue
		}
		report.ok(c.item, c.changed)
	}
	return nil
}

func (s *Store) insertObservations(ctx context.Context, tx *sql.Tx, name string, observations []string, ts string) error {
	if len(observations) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, s.q("INSERT INTO observations (entity_name, content, created_at) VALUES (?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer stmt.Close()
	for _, o := range observations {
		if _, err := stmt.ExecContext(ctx, name, o, ts); err != nil {
			return fmt.Errorf("failed to insert observation for %q: %w", name, err)
		}
	}
	return nil
}

func (s *Store) updateEmbedding(ctx context.Context, tx *sql.Tx, name string, embedding []float32, ts string) error {
	vec, err := s.dialect.VectorArg(embedding)
	if err != nil {
		return fmt.Errorf("failed to convert embedding for entity %q: %w", name, err)
	}
	query := s.q(fmt.Sprintf("UPDATE entities SET embedding = %s, updated_at = ? WHERE name = ?", s.dialect.VectorPlaceholder()))
	if _, err := tx.ExecContext(ctx, query, vec, ts, name); err != nil {
		return fmt.Errorf("failed to update embedding for %q: %w", name, err)
	}
	return nil
}

// entityObservations returns the ordered observations of name and whether
// the entity exists.
func (s *Store) entityObservations(ctx context.Context, name string) ([]string, bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, s.q("SELECT 1 FROM entities WHERE name = ?"), name).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up entity %q: %w", name, err)
	}

	stmt, err := s.preparedStmt(ctx, "SELECT content FROM observations WHERE entity_name = ? ORDER BY id")
	if err != nil {
		return nil, false, err
	}
	rows, err := stmt.QueryContext(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()
	observations := []string{}
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, false, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, content)
	}
	return observations, true, rows.Err()
}

// batchReport builds an apptype.BatchReport item by item.
type batchReport struct {
	apptype.BatchReport
}

func newBatchReport(n int) *batchReport {
	r := &batchReport{}
	r.Items = make([]apptype.BatchItem, n)
	for i := range r.Items {
		r.Items[i].Index = i
	}
	return r
}

func (r *batchReport) ok(i, changed int) {
	r.Items[i].OK = true
	r.Items[i].Changed = changed
}

func (r *batchReport) fail(i int, err error) {
	r.Items[i].OK = false
	r.Items[i].Error = err.Error()
	r.Items[i].ErrorKind = string(errs.KindOf(err))
}

func (r *batchReport) finish() *apptype.BatchReport {
	r.Succeeded, r.Failed = 0, 0
	for _, it := range r.Items {
		if it.OK {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
	return &r.BatchReport
}
