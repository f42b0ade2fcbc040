//go:build !noprom

package metrics

import (
	"net/http"
	"strconv"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	dbTotal      *prom.CounterVec
	dbSeconds    *prom.HistogramVec
	toolTotal    *prom.CounterVec
	toolSeconds  *prom.HistogramVec
	poolInUse    prom.Gauge
	poolIdle     prom.Gauge
	stmtCache    *prom.CounterVec
	switchTotal  *prom.CounterVec
	embedInputs  *prom.CounterVec
	embedSeconds *prom.HistogramVec
}

func (p *promRecorder) IncDBOpTotal(op string, success bool) {
	p.dbTotal.WithLabelValues(op, strconv.FormatBool(success)).Inc()
}

func (p *promRecorder) ObserveDBOpSeconds(op string, success bool, seconds float64) {
	p.dbSeconds.WithLabelValues(op, strconv.FormatBool(success)).Observe(seconds)
}

func (p *promRecorder) IncToolTotal(tool string, success bool) {
	p.toolTotal.WithLabelValues(tool, strconv.FormatBool(success)).Inc()
}

func (p *promRecorder) ObserveToolSeconds(tool string, success bool, seconds float64) {
	p.toolSeconds.WithLabelValues(tool, strconv.FormatBool(success)).Observe(seconds)
}

func (p *promRecorder) ObservePoolStats(inUse, idle int) {
	p.poolInUse.Set(float64(inUse))
	p.poolIdle.Set(float64(idle))
}

func (p *promRecorder) IncStmtCacheHit(kind string) {
	p.stmtCache.WithLabelValues(kind, "hit").Inc()
}

func (p *promRecorder) IncStmtCacheMiss(kind string) {
	p.stmtCache.WithLabelValues(kind, "miss").Inc()
}

func (p *promRecorder) IncSwitchTotal(outcome string) {
	p.switchTotal.WithLabelValues(outcome).Inc()
}

func (p *promRecorder) ObserveEmbedBatch(provider string, size int, success bool, seconds float64) {
	ok := strconv.FormatBool(success)
	p.embedInputs.WithLabelValues(provider, ok).Add(float64(size))
	p.embedSeconds.WithLabelValues(provider, ok).Observe(seconds)
}

func enablePrometheus(addr string) error {
	registry := prom.NewRegistry()
	p := &promRecorder{
		dbTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "db_ops_total",
			Help: "Total number of DB operations",
		}, []string{"op", "success"}),
		dbSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "db_op_seconds",
			Help:    "DB operation duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"op", "success"}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "tool_calls_total",
			Help: "Total number of tool handler calls",
		}, []string{"tool", "success"}),
		toolSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "tool_call_seconds",
			Help:    "Tool handler duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"tool", "success"}),
		poolInUse: prom.NewGauge(prom.GaugeOpts{
			Name: "db_pool_in_use",
			Help: "Connections currently in use on the active database",
		}),
		poolIdle: prom.NewGauge(prom.GaugeOpts{
			Name: "db_pool_idle",
			Help: "Idle connections on the active database",
		}),
		stmtCache: prom.NewCounterVec(prom.CounterOpts{
			Name: "stmt_cache_total",
			Help: "Prepared statement cache lookups",
		}, []string{"kind", "result"}),
		switchTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "database_switches_total",
			Help: "Database switch attempts by outcome",
		}, []string{"outcome"}),
		embedInputs: prom.NewCounterVec(prom.CounterOpts{
			Name: "embedding_inputs_total",
			Help: "Texts sent to the embedding provider",
		}, []string{"provider", "success"}),
		embedSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "embedding_batch_seconds",
			Help:    "Embedding batch duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"provider", "success"}),
	}

	registry.MustRegister(p.dbTotal, p.dbSeconds, p.toolTotal, p.toolSeconds,
		p.poolInUse, p.poolIdle, p.stmtCache, p.switchTotal, p.embedInputs, p.embedSeconds)
	SetRecorder(p)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server stopped", "addr", addr, "err", err)
		}
	}()
	logger.Info("Prometheus metrics enabled", "addr", addr)
	return nil
}
