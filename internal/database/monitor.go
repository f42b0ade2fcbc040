package database

import (
	"context"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

// Monitor pings the active store on an interval and publishes pool gauges.
// It is paused while the controller swaps stores.
type Monitor struct {
	interval time.Duration

	mu     sync.Mutex
	store  *Store
	paused bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMonitor(interval time.Duration) *Monitor {
	return &Monitor{interval: interval}
}

// Start begins checking store. A non-positive interval disables the loop.
func (m *Monitor) Start(ctx context.Context, store *Store) {
	m.mu.Lock()
	m.store = store
	m.paused = false
	if m.interval <= 0 || m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()
}

// Pause stops checks until Resume.
func (m *Monitor) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

// Resume points the monitor at store and restarts checks.
func (m *Monitor) Resume(store *Store) {
	m.mu.Lock()
	m.store = store
	m.paused = false
	m.mu.Unlock()
}

// Stop ends the loop and waits for it.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) check(ctx context.Context) {
	m.mu.Lock()
	store, paused := m.store, m.paused
	m.mu.Unlock()
	if paused || store == nil {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, max(m.interval/2, time.Second))
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("health check failed", "database", store.Database(), "error", err)
		return
	}
	stats := store.db.Stats()
	metrics.Default().ObservePoolStats(stats.InUse, stats.Idle)
}
