package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

// PostgresEngine maps logical databases onto databases of one Postgres
// server. DATABASE_URL points at a maintenance database used for listing and
// creating the others.
type PostgresEngine struct {
	cfg   *Config
	admin *pgxpool.Pool
}

func NewPostgresEngine(ctx context.Context, cfg *Config) (*PostgresEngine, error) {
	admin, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, "postgres", err, "failed to create admin pool")
	}
	if err := admin.Ping(ctx); err != nil {
		admin.Close()
		return nil, errs.Wrap(errs.KindConnection, "postgres", err, "postgres server is unreachable")
	}
	return &PostgresEngine{cfg: cfg, admin: admin}, nil
}

func (e *PostgresEngine) Kind() string { return EnginePostgres }

func (e *PostgresEngine) Close() error {
	e.admin.Close()
	return nil
}

func (e *PostgresEngine) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := e.admin.Query(ctx, `SELECT datname FROM pg_database
        WHERE datistemplate = false AND datname <> 'postgres'
        ORDER BY datname`)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, "list_databases", err, "failed to query catalog")
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan database names: %w", err)
	}
	return names, nil
}

func (e *PostgresEngine) exists(ctx context.Context, name string) (bool, error) {
	var found bool
	err := e.admin.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&found)
	return found, err
}

func (e *PostgresEngine) Open(ctx context.Context, name string, create bool) (Backend, error) {
	const op = "open_database"
	if err := ValidateDatabaseName(name); err != nil {
		return nil, err
	}
	found, err := e.exists(ctx, name)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, op, err, "failed to look up database %q", name)
	}
	if !found {
		if !create {
			return nil, errs.NotFound(op, "database %q does not exist", name)
		}
		if _, err := e.admin.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
			return nil, errs.Wrap(errs.KindConnection, op, err, "failed to create database %q", name)
		}
	}

	poolCfg := e.admin.Config().Copy()
	poolCfg.ConnConfig.Database = name
	if e.cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(e.cfg.MaxOpenConns)
	}
	if err := ensureVectorExtension(ctx, poolCfg.ConnConfig); err != nil {
		return nil, errs.Wrap(errs.KindConnection, op, err, "failed to enable pgvector in %q", name)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, op, err, "failed to create pool for %q", name)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.KindConnection, op, err, "database %q is unreachable", name)
	}
	db := stdlib.OpenDBFromPool(pool)
	applyPoolSettings(db, e.cfg)
	return &sqlBackend{name: name, db: db, kind: DialectPostgres, onClose: pool.Close}, nil
}

// ensureVectorExtension runs before the pool exists because AfterConnect
// needs the vector type to be present.
func ensureVectorExtension(ctx context.Context, connCfg *pgx.ConnConfig) error {
	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	return err
}
