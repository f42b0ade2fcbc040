package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// Migration is one versioned schema change. Down may be empty, in which case
// the version cannot be rolled back.
type Migration struct {
	Version int
	Name    string
	Up      []string
	Down    []string
}

// Migrator applies and rolls back migrations against one database. The
// applied version is MAX(version) of schema_migrations.
type Migrator struct {
	db         *sql.DB
	dialect    Dialect
	migrations []Migration
}

// NewMigrator sorts migrations by version and rejects invalid registries.
func NewMigrator(db *sql.DB, dialect Dialect, migrations []Migration) (*Migrator, error) {
	const op = "migrate"
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	seen := make(map[int]bool, len(sorted))
	for _, m := range sorted {
		if m.Version <= 0 {
			return nil, errs.Validation(op, "migration %q has non-positive version %d", m.Name, m.Version)
		}
		if seen[m.Version] {
			return nil, errs.Conflict(op, "duplicate migration version %d", m.Version)
		}
		seen[m.Version] = true
	}
	return &Migrator{db: db, dialect: dialect, migrations: sorted}, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        name TEXT NOT NULL,
        applied_at TEXT NOT NULL
    )`)
	if err != nil {
		return errs.Wrap(errs.KindMigration, "migrate", err, "failed to create schema_migrations")
	}
	return nil
}

// CurrentVersion returns the highest applied version, 0 if none.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	var v sql.NullInt64
	if err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, errs.Wrap(errs.KindMigration, "migrate", err, "failed to read schema version")
	}
	return int(v.Int64), nil
}

// Run applies every migration above the current version in ascending order,
// each in its own transaction together with its record. It stops at the
// first failure and returns the versions applied before it.
func (m *Migrator) Run(ctx context.Context) ([]int, error) {
	done := metrics.TimeOp("db_migrate")
	success := false
	defer func() { done(success) }()

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	applied := []int{}
	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return applied, err
		}
		logger.Info("Applied migration", "version", mig.Version, "name", mig.Name)
		applied = append(applied, mig.Version)
	}
	success = true
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	const op = "migrate"
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindMigration, op, err, "failed to begin migration %d", mig.Version)
	}
	defer tx.Rollback()

	for _, stmt := range mig.Up {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(errs.KindMigration, op, err, "migration %d (%s) failed", mig.Version, mig.Name)
		}
	}
	if _, err := tx.ExecContext(ctx, m.dialect.Rebind("INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)"),
		mig.Version, mig.Name, now()); err != nil {
		return errs.Wrap(errs.KindMigration, op, err, "failed to record migration %d", mig.Version)
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindMigration, op, err, "failed to commit migration %d", mig.Version)
	}
	return nil
}

// Rollback reverts applied migrations above target in descending order. If
// any of them has no Down script nothing is rolled back.
func (m *Migrator) Rollback(ctx context.Context, target int) ([]int, error) {
	const op = "migrate"
	done := metrics.TimeOp("db_rollback")
	success := false
	defer func() { done(success) }()

	if target < 0 {
		return nil, errs.Validation(op, "target version must not be negative, got %d", target)
	}
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	var todo []Migration
	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if mig.Version > target && mig.Version <= current {
			if len(mig.Down) == 0 {
				return nil, errs.E(errs.KindMigration, op, "migration %d (%s) has no reverse script", mig.Version, mig.Name)
			}
			todo = append(todo, mig)
		}
	}

	reverted := []int{}
	for _, mig := range todo {
		if err := m.revert(ctx, mig); err != nil {
			return reverted, err
		}
		logger.Info("Rolled back migration", "version", mig.Version, "name", mig.Name)
		reverted = append(reverted, mig.Version)
	}
	success = true
	return reverted, nil
}

func (m *Migrator) revert(ctx context.Context, mig Migration) error {
	const op = "migrate"
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindMigration, op, err, "failed to begin rollback of %d", mig.Version)
	}
	defer tx.Rollback()

	for _, stmt := range mig.Down {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(errs.KindMigration, op, err, "rollback of migration %d (%s) failed", mig.Version, mig.Name)
		}
	}
	if _, err := tx.ExecContext(ctx, m.dialect.Rebind("DELETE FROM schema_migrations WHERE version = ?"), mig.Version); err != nil {
		return errs.Wrap(errs.KindMigration, op, err, "failed to remove record of migration %d", mig.Version)
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindMigration, op, err, "failed to commit rollback of %d", mig.Version)
	}
	return nil
}

// Status lists every registered migration with its applied time.
func (m *Migrator) Status(ctx context.Context) ([]apptype.MigrationInfo, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()
	appliedAt := map[int]string{}
	for rows.Next() {
		var v int
		var at string
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		appliedAt[v] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]apptype.MigrationInfo, 0, len(m.migrations))
	for _, mig := range m.migrations {
		at, ok := appliedAt[mig.Version]
		out = append(out, apptype.MigrationInfo{Version: mig.Version, Name: mig.Name, Applied: ok, AppliedAt: at})
	}
	return out, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
