package memory

import (
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/database"
)

// Config exposes a stable wrapper for database configuration in package mode.
// Zero fields keep the value read from the environment.
type Config struct {
	// Engine is "embedded" (default) or "postgres".
	Engine string
	// Driver selects the embedded driver: "libsql" (default) or "sqlite".
	Driver string

	URL         string
	AuthToken   string
	DataDir     string
	PostgresURL string

	ActiveDatabase string
	AutoCreate     bool

	EmbeddingDims  int
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int

	HybridDecay       float64
	HybridNeighborCap int
	ChunkMaxTokens    int
	ChunkOverlap      int

	// Tokenizer is "tiktoken" (default) or "whitespace".
	Tokenizer string
}

func (c *Config) toInternal() *database.Config {
	cfg := database.NewConfig()
	setString(&cfg.Engine, c.Engine)
	setString(&cfg.Driver, c.Driver)
	setString(&cfg.URL, c.URL)
	setString(&cfg.AuthToken, c.AuthToken)
	setString(&cfg.DataDir, c.DataDir)
	setString(&cfg.PostgresURL, c.PostgresURL)
	setString(&cfg.ActiveDatabase, c.ActiveDatabase)
	setString(&cfg.Tokenizer, c.Tokenizer)
	if c.AutoCreate {
		cfg.AutoCreate = true
	}
	setInt(&cfg.EmbeddingDims, c.EmbeddingDims)
	setInt(&cfg.MaxOpenConns, c.MaxOpenConns)
	setInt(&cfg.MaxIdleConns, c.MaxIdleConns)
	setInt(&cfg.ConnMaxIdleSec, c.ConnMaxIdleSec)
	setInt(&cfg.ConnMaxLifeSec, c.ConnMaxLifeSec)
	setInt(&cfg.HybridNeighborCap, c.HybridNeighborCap)
	setInt(&cfg.ChunkMaxTokens, c.ChunkMaxTokens)
	setInt(&cfg.ChunkOverlap, c.ChunkOverlap)
	if c.HybridDecay != 0 {
		cfg.HybridDecay = c.HybridDecay
	}
	return cfg
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
