package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// Backend is an open handle to one logical database.
type Backend interface {
	Database() string
	DB() *sql.DB
	Kind() DialectKind
	Close() error
}

// Engine opens and enumerates logical databases. EmbeddedEngine keeps one
// file per database; PostgresEngine maps each onto a Postgres database.
type Engine interface {
	Kind() string
	// Open returns a handle to name. A missing database is created only when
	// create is set, otherwise Open fails with a NOT_FOUND error.
	Open(ctx context.Context, name string, create bool) (Backend, error)
	// ListDatabases returns user databases sorted by name.
	ListDatabases(ctx context.Context) ([]string, error)
	Close() error
}

type sqlBackend struct {
	name    string
	db      *sql.DB
	kind    DialectKind
	onClose func()
}

func (b *sqlBackend) Database() string  { return b.name }
func (b *sqlBackend) DB() *sql.DB       { return b.db }
func (b *sqlBackend) Kind() DialectKind { return b.kind }

func (b *sqlBackend) Close() error {
	err := b.db.Close()
	if b.onClose != nil {
		b.onClose()
	}
	return err
}

// applyPoolSettings tunes a database/sql pool from config.
func applyPoolSettings(db *sql.DB, cfg *Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleSec > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleSec) * time.Second)
	}
	if cfg.ConnMaxLifeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeSec) * time.Second)
	}
	stats := db.Stats()
	metrics.Default().ObservePoolStats(stats.InUse, stats.Idle)
}
