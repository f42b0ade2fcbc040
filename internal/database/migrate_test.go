package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

func openTestSQL(t *testing.T) (*sql.DB, Dialect) {
	t.Helper()
	db, err := sql.Open(DriverLibSQL, "file:"+filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, detectDialect(context.Background(), db, DialectLibSQL, 4)
}

func appliedAt(t *testing.T, db *sql.DB) map[int]string {
	t.Helper()
	rows, err := db.Query("SELECT version, applied_at FROM schema_migrations")
	require.NoError(t, err)
	defer rows.Close()
	out := map[int]string{}
	for rows.Next() {
		var v int
		var at string
		require.NoError(t, rows.Scan(&v, &at))
		out[v] = at
	}
	require.NoError(t, rows.Err())
	return out
}

func TestMigrationsRerunIsNoop(t *testing.T) {
	db, d := openTestSQL(t)
	ctx := context.Background()
	m, err := NewMigrator(db, d, Migrations(d))
	require.NoError(t, err)

	applied, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, applied)
	before := appliedAt(t, db)

	again, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, before, appliedAt(t, db))

	v, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestMigrationFailureStopsAndKeepsVersion(t *testing.T) {
	db, d := openTestSQL(t)
	ctx := context.Background()
	migs := []Migration{
		{Version: 1, Name: "ok", Up: []string{"CREATE TABLE one (id INTEGER)"}, Down: []string{"DROP TABLE one"}},
		{Version: 2, Name: "broken", Up: []string{"CREATE TABLE two (id INTEGER)", "THIS IS NOT SQL"}},
		{Version: 3, Name: "never", Up: []string{"CREATE TABLE three (id INTEGER)"}},
	}
	m, err := NewMigrator(db, d, migs)
	require.NoError(t, err)

	applied, err := m.Run(ctx)
	require.ErrorIs(t, err, errs.ErrMigration)
	assert.Equal(t, []int{1}, applied)

	v, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	var n int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name IN ('two', 'three')").Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMigratorRejectsBadRegistry(t *testing.T) {
	db, d := openTestSQL(t)
	_, err := NewMigrator(db, d, []Migration{{Version: 1}, {Version: 1}})
	assert.ErrorIs(t, err, errs.ErrConflict)
	_, err = NewMigrator(db, d, []Migration{{Version: 0}})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestRollback(t *testing.T) {
	db, d := openTestSQL(t)
	ctx := context.Background()
	migs := []Migration{
		{Version: 1, Name: "one", Up: []string{"CREATE TABLE one (id INTEGER)"}},
		{Version: 2, Name: "two", Up: []string{"CREATE TABLE two (id INTEGER)"}, Down: []string{"DROP TABLE two"}},
		{Version: 3, Name: "three", Up: []string{"CREATE TABLE three (id INTEGER)"}, Down: []string{"DROP TABLE three"}},
	}
	m, err := NewMigrator(db, d, migs)
	require.NoError(t, err)
	_, err = m.Run(ctx)
	require.NoError(t, err)

	// version 1 has no reverse script, so nothing is touched
	_, err = m.Rollback(ctx, 0)
	require.ErrorIs(t, err, errs.ErrMigration)
	v, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	reverted, err := m.Rollback(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, reverted)
	v, err = m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 3)
	assert.True(t, status[0].Applied)
	assert.False(t, status[1].Applied)

	again, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, again)
}

func TestSchemaRollbackToZero(t *testing.T) {
	db, d := openTestSQL(t)
	ctx := context.Background()
	m, err := NewMigrator(db, d, Migrations(d))
	require.NoError(t, err)
	_, err = m.Run(ctx)
	require.NoError(t, err)

	reverted, err := m.Rollback(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2, 1}, reverted)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'entities'").Scan(&n))
	assert.Zero(t, n)
}
