//go:build noprom

package metrics

import "github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"

// Built with -tags noprom: the exporter is compiled out and the no-op
// recorder stays in place.
func enablePrometheus(addr string) error {
	logger.Warn("METRICS_PROMETHEUS is set but this build has no exporter", "addr", addr)
	return nil
}
