package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/readiness"
)

// State of the switch controller.
type State string

const (
	StateIdle      State = "idle"
	StateSwitching State = "switching"
	StateFatal     State = "fatal"
)

// recoveryTimeout bounds reopening the previous database after a failed
// switch, independent of the caller's context.
const recoveryTimeout = 30 * time.Second

// SwitchResult describes a completed switch.
type SwitchResult struct {
	Previous string
	Current  string
	Migrated []int
}

// Controller owns the active store. Operations load it through Current;
// Switch replaces it and restores the previous database when the new one
// cannot be opened or migrated.
type Controller struct {
	engine  Engine
	cfg     *Config
	gate    *readiness.Gate[*Resources]
	monitor *Monitor

	switching atomic.Bool
	mu        sync.Mutex

	current atomic.Pointer[Store]
	active  atomic.Value // string
	state   atomic.Value // State

	fatalMu sync.Mutex
	onFatal func(error)
}

func NewController(engine Engine, cfg *Config, gate *readiness.Gate[*Resources]) *Controller {
	c := &Controller{
		engine:  engine,
		cfg:     cfg,
		gate:    gate,
		monitor: NewMonitor(cfg.HealthInterval),
	}
	c.active.Store("")
	c.state.Store(StateIdle)
	return c
}

// SetFatalHook registers fn to run when the controller enters the fatal state.
func (c *Controller) SetFatalHook(fn func(error)) {
	c.fatalMu.Lock()
	c.onFatal = fn
	c.fatalMu.Unlock()
}

// Start opens the configured database, creating it when missing, and starts
// the monitor.
func (c *Controller) Start(ctx context.Context) error {
	store, applied, err := c.openStore(ctx, c.cfg.ActiveDatabase, true)
	if err != nil {
		return err
	}
	c.current.Store(store)
	c.active.Store(store.Database())
	c.monitor.Start(context.WithoutCancel(ctx), store)
	logger.Info("database ready", "database", store.Database(), "dialect", store.Dialect().Kind, "dims", store.Dims(), "migrated", applied)
	return nil
}

// State returns the controller state.
func (c *Controller) State() State { return c.state.Load().(State) }

// CurrentDatabase is the database of the last successful switch.
func (c *Controller) CurrentDatabase() string { return c.active.Load().(string) }

// Current returns the active store.
func (c *Controller) Current() (*Store, error) {
	if c.State() == StateFatal {
		return nil, errs.E(errs.KindSwitchFatal, "current", "no database is reachable")
	}
	s := c.current.Load()
	if s == nil {
		return nil, errs.E(errs.KindConnection, "current", "no active database")
	}
	return s, nil
}

// ListDatabases lists logical databases and flags the active one.
func (c *Controller) ListDatabases(ctx context.Context) ([]apptype.DatabaseInfo, error) {
	names, err := c.engine.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}
	active := c.CurrentDatabase()
	out := make([]apptype.DatabaseInfo, 0, len(names)+1)
	listed := false
	for _, n := range names {
		out = append(out, apptype.DatabaseInfo{Name: n, Active: n == active})
		listed = listed || n == active
	}
	if !listed && active != "" && c.State() != StateFatal {
		out = append(out, apptype.DatabaseInfo{Name: active, Active: true})
	}
	return out, nil
}

// Switch makes name the active database. A second call while one is running
// fails with ALREADY_SWITCHING. When name cannot be opened or migrated the
// previous database is reopened and SWITCH_FAILURE is returned; when that
// also fails the controller turns fatal and returns SWITCH_FATAL.
func (c *Controller) Switch(ctx context.Context, name string) (*SwitchResult, error) {
	const op = "switch_database"
	if err := ValidateDatabaseName(name); err != nil {
		return nil, err
	}
	if !c.switching.CompareAndSwap(false, true) {
		metrics.Default().IncSwitchTotal("rejected")
		return nil, errs.E(errs.KindAlreadySwitching, op, "a database switch is already in progress")
	}
	defer c.switching.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateFatal {
		return nil, errs.E(errs.KindSwitchFatal, op, "no database is reachable")
	}
	prev := c.CurrentDatabase()
	if name == prev {
		return &SwitchResult{Previous: prev, Current: name, Migrated: []int{}}, nil
	}

	c.state.Store(StateSwitching)
	logger.Info("switching database", "from", prev, "to", name)
	c.monitor.Pause()
	if old := c.current.Load(); old != nil {
		if err := old.Close(); err != nil {
			logger.Warn("error closing previous database", "database", prev, "error", err)
		}
	}

	store, applied, err := c.openStore(ctx, name, c.cfg.AutoCreate)
	if err == nil {
		c.current.Store(store)
		c.active.Store(name)
		c.monitor.Resume(store)
		c.state.Store(StateIdle)
		metrics.Default().IncSwitchTotal("success")
		logger.Info("switched database", "database", name, "migrated", applied)
		return &SwitchResult{Previous: prev, Current: name, Migrated: applied}, nil
	}

	logger.Warn("switch failed, restoring previous database", "from", prev, "to", name, "error", err)
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recoveryTimeout)
	defer cancel()
	restored, _, rerr := c.openStore(rctx, prev, false)
	if rerr == nil {
		c.current.Store(restored)
		c.monitor.Resume(restored)
		c.state.Store(StateIdle)
		metrics.Default().IncSwitchTotal("rolled_back")
		return nil, errs.Wrap(errs.KindSwitchFailure, op, err, "cannot switch to %q, still on %q", name, prev)
	}

	c.current.Store(nil)
	c.state.Store(StateFatal)
	metrics.Default().IncSwitchTotal("fatal")
	fatal := errs.Wrap(errs.KindSwitchFatal, op, errors.Join(err, rerr), "cannot switch to %q and cannot reopen %q", name, prev)
	logger.Error("no database is reachable", "error", fatal)
	c.fatalMu.Lock()
	hook := c.onFatal
	c.fatalMu.Unlock()
	if hook != nil {
		hook(fatal)
	}
	return nil, fatal
}

// openStore opens name, adopts the embedding width of an existing schema and
// runs pending migrations.
func (c *Controller) openStore(ctx context.Context, name string, create bool) (*Store, []int, error) {
	backend, err := c.engine.Open(ctx, name, create)
	if err != nil {
		return nil, nil, err
	}
	dims := c.cfg.EmbeddingDims
	if existing := detectDBEmbeddingDims(ctx, backend.DB(), backend.Kind()); existing > 0 && existing != dims {
		logger.Warn("database embedding width differs from EMBEDDING_DIMS; using the database width",
			"database", name, "db_dims", existing, "configured", dims)
		dims = existing
	}
	dialect := detectDialect(ctx, backend.DB(), backend.Kind(), dims)
	migrator, err := NewMigrator(backend.DB(), dialect, Migrations(dialect))
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	applied, err := migrator.Run(ctx)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return newStore(backend, dialect, c.cfg, c.gate), applied, nil
}

// Close stops the monitor and closes the active store and the engine.
func (c *Controller) Close() error {
	c.monitor.Stop()
	var errList []error
	if s := c.current.Swap(nil); s != nil {
		errList = append(errList, s.Close())
	}
	errList = append(errList, c.engine.Close())
	return errors.Join(errList...)
}
