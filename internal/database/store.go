package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/chunking"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/embeddings"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/readiness"
)

// Resources are loaded in the background after the database is serving.
type Resources struct {
	Provider  embeddings.Provider
	Tokenizer chunking.Tokenizer
}

// Store runs graph and document operations against one open logical
// database. It is replaced wholesale when the active database changes.
type Store struct {
	backend Backend
	db      *sql.DB
	dialect Dialect
	cfg     *Config
	gate    *readiness.Gate[*Resources]

	stmtMu sync.RWMutex
	stmts  map[string]*sql.Stmt

	closed atomic.Bool
}

func newStore(backend Backend, dialect Dialect, cfg *Config, gate *readiness.Gate[*Resources]) *Store {
	return &Store{
		backend: backend,
		db:      backend.DB(),
		dialect: dialect,
		cfg:     cfg,
		gate:    gate,
		stmts:   make(map[string]*sql.Stmt),
	}
}

// Database returns the logical database name.
func (s *Store) Database() string { return s.backend.Database() }

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Dims returns the embedding width of this database.
func (s *Store) Dims() int { return s.dialect.Dims }

// Close releases the handle. Operations still running fail with CONNECTION_CLOSED.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.closeStmts()
	return s.backend.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.checkOpen("ping"); err != nil {
		return err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return s.wrapErr("ping", err)
	}
	return nil
}

func (s *Store) checkOpen(op string) error {
	if s.closed.Load() {
		return errs.E(errs.KindConnectionClosed, op, "database %q is closed", s.Database())
	}
	return nil
}

// wrapErr classifies driver errors. Typed errors pass through.
func (s *Store) wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}
	if s.closed.Load() || strings.Contains(err.Error(), "database is closed") {
		return errs.Wrap(errs.KindConnectionClosed, op, err, "database %q was closed during the call", s.Database())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.Wrap(errs.KindInternal, op, err, "database error")
}

// resources waits for phase-two resources.
func (s *Store) resources(ctx context.Context) (*Resources, error) {
	return s.gate.Wait(ctx)
}

// embed embeds texts with the loaded provider, fitted to this database's width.
func (s *Store) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	res, err := s.resources(ctx)
	if err != nil {
		return nil, err
	}
	provider := embeddings.WrapToDims(res.Provider, s.dialect.Dims, s.cfg.AdaptMode)
	vecs, err := provider.Embed(ctx, texts)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "embed", err, "embedding provider %s failed", provider.Name())
	}
	if len(vecs) != len(texts) {
		return nil, errs.E(errs.KindInternal, "embed", "provider returned %d embeddings for %d inputs", len(vecs), len(texts))
	}
	return vecs, nil
}

func (s *Store) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// tx runs fn in a transaction and commits when it returns nil.
func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// q rebinds a query for the dialect.
func (s *Store) q(query string) string { return s.dialect.Rebind(query) }

// entityText is the text an entity embedding is computed from.
func entityText(name string, observations []string) string {
	if len(observations) == 0 {
		return name
	}
	return name + "\n" + strings.Join(observations, "\n")
}
