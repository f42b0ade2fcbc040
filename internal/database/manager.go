package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/chunking"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/embeddings"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/readiness"
)

// DBManager is the service context: it owns the engine, the switch
// controller and the background-loaded embedding resources.
type DBManager struct {
	config     *Config
	engine     Engine
	controller *Controller
	gate       *readiness.Gate[*Resources]
	cancel     context.CancelFunc
}

// Option customizes NewDBManager.
type Option func(*managerOptions)

type managerOptions struct {
	engine Engine
	gate   *readiness.Gate[*Resources]
	loader func(context.Context) (*Resources, error)
	noLoad bool
}

// WithEngine uses engine instead of the one selected by Config.Engine.
func WithEngine(engine Engine) Option {
	return func(o *managerOptions) { o.engine = engine }
}

// WithResources serves with already loaded resources.
func WithResources(res *Resources) Option {
	return func(o *managerOptions) { o.gate = readiness.Resolved(res) }
}

// WithResourceLoader replaces DefaultResourceLoader.
func WithResourceLoader(loader func(context.Context) (*Resources, error)) Option {
	return func(o *managerOptions) { o.loader = loader }
}

// WithoutResources never loads embedding resources. Operations needing them
// fail with NOT_READY; admin commands use it.
func WithoutResources() Option {
	return func(o *managerOptions) { o.noLoad = true }
}

// DefaultResourceLoader builds the embedding provider named by the
// environment behind a worker pool, and the configured tokenizer.
func DefaultResourceLoader(cfg *Config) func(context.Context) (*Resources, error) {
	return func(ctx context.Context) (*Resources, error) {
		provider, err := embeddings.NewFromEnv(cfg.EmbeddingDims)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings provider: %w", err)
		}
		pool := embeddings.NewPool(provider, embeddings.PoolOptions{
			Workers:    cfg.EmbedWorkers,
			BatchSize:  cfg.EmbedBatchSize,
			MaxRetries: cfg.EmbedMaxRetries,
		})
		tok, err := chunking.NewTokenizer(cfg.Tokenizer, cfg.TokenizerEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to create tokenizer: %w", err)
		}
		// Forces the encoding tables to load now rather than on the first call.
		tok.Tokenize("warm up")
		return &Resources{Provider: pool, Tokenizer: tok}, nil
	}
}

// NewDBManager opens the active database and runs its migrations, then
// starts loading embedding resources in the background. It returns once the
// database is usable; operations needing embeddings wait for the resources.
func NewDBManager(ctx context.Context, config *Config, opts ...Option) (*DBManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := &managerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	engine := o.engine
	if engine == nil {
		switch config.Engine {
		case EnginePostgres:
			pg, err := NewPostgresEngine(ctx, config)
			if err != nil {
				return nil, err
			}
			engine = pg
		default:
			engine = NewEmbeddedEngine(config)
		}
	}

	gate := o.gate
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if gate == nil {
		gate = readiness.New[*Resources](config.ReadinessTimeout)
	}

	controller := NewController(engine, config, gate)
	if err := controller.Start(ctx); err != nil {
		cancel()
		engine.Close()
		return nil, fmt.Errorf("failed to initialize database %q: %w", config.ActiveDatabase, err)
	}

	if o.noLoad && !gate.Ready() {
		gate.Fail(errs.E(errs.KindNotReady, "resources", "embedding resources are disabled"))
	}
	if !gate.Ready() && gate.Err() == nil {
		loader := o.loader
		if loader == nil {
			loader = DefaultResourceLoader(config)
		}
		started := time.Now()
		gate.Start(loadCtx, func(ctx context.Context) (*Resources, error) {
			res, err := loader(ctx)
			if err != nil {
				logger.Error("failed to load embedding resources", "error", err)
				return nil, err
			}
			logger.Info("embedding resources ready", "provider", res.Provider.Name(), "tokenizer", res.Tokenizer.Name(), "took", time.Since(started))
			return res, nil
		})
	}

	return &DBManager{config: config, engine: engine, controller: controller, gate: gate, cancel: cancel}, nil
}

// Config returns the configuration the manager was built with.
func (dm *DBManager) Config() *Config { return dm.config }

// Store returns the active store.
func (dm *DBManager) Store() (*Store, error) { return dm.controller.Current() }

// Switch changes the active database.
func (dm *DBManager) Switch(ctx context.Context, name string) (*SwitchResult, error) {
	return dm.controller.Switch(ctx, name)
}

func (dm *DBManager) ListDatabases(ctx context.Context) ([]apptype.DatabaseInfo, error) {
	return dm.controller.ListDatabases(ctx)
}

func (dm *DBManager) CurrentDatabase() string { return dm.controller.CurrentDatabase() }

// EngineKind names the engine in use.
func (dm *DBManager) EngineKind() string { return dm.engine.Kind() }

// SetFatalHook runs fn when no database is reachable after a failed switch.
func (dm *DBManager) SetFatalHook(fn func(error)) { dm.controller.SetFatalHook(fn) }

// Ready reports whether embedding resources are loaded.
func (dm *DBManager) Ready() bool { return dm.gate.Ready() }

// Health summarizes the manager without waiting for resources.
func (dm *DBManager) Health(ctx context.Context) *apptype.HealthResult {
	h := &apptype.HealthResult{
		Version:   buildinfo.Version,
		Revision:  buildinfo.Revision,
		BuildDate: buildinfo.BuildDate,
		Engine:    dm.engine.Kind(),
		Database:  dm.controller.CurrentDatabase(),
		State:     string(dm.controller.State()),
		Ready:     dm.gate.Ready(),
	}
	if store, err := dm.controller.Current(); err == nil {
		h.EmbeddingDims = store.Dims()
		if v, err := (&Migrator{db: store.db, dialect: store.dialect}).CurrentVersion(ctx); err == nil {
			h.SchemaVersion = v
		}
	}
	if h.Ready {
		if res, err := dm.gate.Wait(ctx); err == nil {
			h.Provider = res.Provider.Name()
			h.Tokenizer = res.Tokenizer.Name()
		}
	}
	return h
}

// MigrationStatus reports applied and pending migrations of the active database.
func (dm *DBManager) MigrationStatus(ctx context.Context) (*apptype.MigrationStatusResult, error) {
	store, err := dm.Store()
	if err != nil {
		return nil, err
	}
	migrator, err := NewMigrator(store.db, store.dialect, Migrations(store.dialect))
	if err != nil {
		return nil, err
	}
	current, err := migrator.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	status, err := migrator.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &apptype.MigrationStatusResult{Database: store.Database(), CurrentVersion: current, Migrations: status}, nil
}

// RollbackMigrations reverts the active database down to target.
func (dm *DBManager) RollbackMigrations(ctx context.Context, target int) ([]int, error) {
	store, err := dm.Store()
	if err != nil {
		return nil, err
	}
	migrator, err := NewMigrator(store.db, store.dialect, Migrations(store.dialect))
	if err != nil {
		return nil, err
	}
	return migrator.Rollback(ctx, target)
}

// Close stops background work and closes the active database.
func (dm *DBManager) Close() error {
	dm.cancel()
	return dm.controller.Close()
}
