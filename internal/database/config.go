package database

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/util"
)

// Engine kinds.
const (
	EngineEmbedded = "embedded"
	EnginePostgres = "postgres"
)

// Embedded drivers.
const (
	DriverLibSQL = "libsql"
	DriverSQLite = "sqlite"
)

// Config holds the database configuration
type Config struct {
	Engine string
	Driver string

	// URL selects single-database mode for the embedded engine: one libSQL
	// file or remote database that is the only logical database.
	URL       string
	AuthToken string
	// DataDir holds one file per logical database when URL is empty.
	DataDir string

	PostgresURL string

	ActiveDatabase string
	AutoCreate     bool

	EmbeddingDims int
	AdaptMode     string

	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int

	HybridDecay       float64
	HybridNeighborCap int

	ChunkMaxTokens   int
	ChunkOverlap     int
	ChunkCommitBatch int
	ReEmbedBatchSize int

	HealthInterval   time.Duration
	ReadinessTimeout time.Duration

	Tokenizer         string
	TokenizerEncoding string
	EmbedWorkers      int
	EmbedBatchSize    int
	EmbedMaxRetries   int
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	return &Config{
		Engine:            strings.ToLower(util.GetEnvString("DB_ENGINE", EngineEmbedded)),
		Driver:            strings.ToLower(util.GetEnvString("DB_DRIVER", DriverLibSQL)),
		URL:               util.GetEnv("LIBSQL_URL"),
		AuthToken:         util.GetEnv("LIBSQL_AUTH_TOKEN"),
		DataDir:           util.GetEnvString("DATA_DIR", "./data"),
		PostgresURL:       util.GetEnv("DATABASE_URL"),
		ActiveDatabase:    util.GetEnvString("ACTIVE_DATABASE", "default"),
		AutoCreate:        util.GetEnvBool("AUTO_CREATE_DATABASES", false),
		EmbeddingDims:     util.GetEnvInt("EMBEDDING_DIMS", 384),
		AdaptMode:         util.GetEnv("EMBEDDINGS_ADAPT_MODE"),
		MaxOpenConns:      util.GetEnvInt("DB_MAX_OPEN_CONNS", 0),
		MaxIdleConns:      util.GetEnvInt("DB_MAX_IDLE_CONNS", 0),
		ConnMaxIdleSec:    util.GetEnvInt("DB_CONN_MAX_IDLE_SEC", 0),
		ConnMaxLifeSec:    util.GetEnvInt("DB_CONN_MAX_LIFETIME_SEC", 0),
		HybridDecay:       util.GetEnvFloat("HYBRID_DECAY", 0.5),
		HybridNeighborCap: util.GetEnvInt("HYBRID_NEIGHBOR_CAP", 10),
		ChunkMaxTokens:    util.GetEnvInt("CHUNK_MAX_TOKENS", 512),
		ChunkOverlap:      util.GetEnvInt("CHUNK_OVERLAP", 64),
		ChunkCommitBatch:  util.GetEnvInt("CHUNK_COMMIT_BATCH", 64),
		ReEmbedBatchSize:  util.GetEnvInt("REEMBED_BATCH_SIZE", 100),
		HealthInterval:    util.GetEnvDuration("HEALTH_INTERVAL", 30*time.Second),
		ReadinessTimeout:  util.GetEnvDuration("READINESS_TIMEOUT", 2*time.Minute),
		Tokenizer:         util.GetEnvString("TOKENIZER", "tiktoken"),
		TokenizerEncoding: util.GetEnvString("TOKENIZER_ENCODING", "o200k_base"),
		EmbedWorkers:      util.GetEnvInt("EMBED_WORKERS", 4),
		EmbedBatchSize:    util.GetEnvInt("EMBED_BATCH_SIZE", 32),
		EmbedMaxRetries:   util.GetEnvInt("EMBED_MAX_RETRIES", 3),
	}
}

// Validate checks the values NewDBManager depends on.
func (c *Config) Validate() error {
	const op = "config"
	switch c.Engine {
	case EngineEmbedded:
		if c.Driver != DriverLibSQL && c.Driver != DriverSQLite {
			return errs.Validation(op, "DB_DRIVER must be %s or %s, got %q", DriverLibSQL, DriverSQLite, c.Driver)
		}
		if c.URL == "" && c.DataDir == "" {
			return errs.Validation(op, "either LIBSQL_URL or DATA_DIR must be set")
		}
	case EnginePostgres:
		if c.PostgresURL == "" {
			return errs.Validation(op, "DATABASE_URL is required for the postgres engine")
		}
	default:
		return errs.Validation(op, "DB_ENGINE must be %s or %s, got %q", EngineEmbedded, EnginePostgres, c.Engine)
	}
	if c.EmbeddingDims <= 0 || c.EmbeddingDims > 65536 {
		return errs.Validation(op, "EMBEDDING_DIMS must be between 1 and 65536 inclusive, got %d", c.EmbeddingDims)
	}
	if c.HybridDecay <= 0 || c.HybridDecay >= 1 {
		return errs.Validation(op, "HYBRID_DECAY must be in (0,1), got %g", c.HybridDecay)
	}
	if c.HybridNeighborCap <= 0 {
		return errs.Validation(op, "HYBRID_NEIGHBOR_CAP must be positive, got %d", c.HybridNeighborCap)
	}
	if c.ChunkMaxTokens <= 0 || c.ChunkOverlap < 0 {
		return errs.Validation(op, "CHUNK_MAX_TOKENS must be positive and CHUNK_OVERLAP not negative")
	}
	if c.ChunkCommitBatch <= 0 {
		c.ChunkCommitBatch = 64
	}
	if c.ReEmbedBatchSize <= 0 {
		c.ReEmbedBatchSize = 100
	}
	return ValidateDatabaseName(c.ActiveDatabase)
}

var databaseNameRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]{0,62}$`)

// ValidateDatabaseName rejects names that are unsafe as file names or
// Postgres identifiers.
func ValidateDatabaseName(name string) error {
	if !databaseNameRe.MatchString(name) {
		return errs.Validation("database", "invalid database name %q: use letters, digits, '_' or '-' (max 63)", name)
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("engine=%s driver=%s database=%s dims=%d", c.Engine, c.Driver, c.ActiveDatabase, c.EmbeddingDims)
}
