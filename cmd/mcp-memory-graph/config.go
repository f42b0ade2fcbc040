package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/database"
)

const (
	configFileName = "config"
	configFileType = "yaml"
)

// Config keys. Each also binds the persistent flag of the same meaning.
const (
	cfgKeyEngine            = "engine"
	cfgKeyDriver            = "driver"
	cfgKeyLibSQLURL         = "libsql_url"
	cfgKeyAuthToken         = "auth_token"
	cfgKeyDataDir           = "data_dir"
	cfgKeyDatabaseURL       = "database_url"
	cfgKeyActiveDatabase    = "database"
	cfgKeyAutoCreate        = "auto_create"
	cfgKeyEmbeddingDims     = "embedding_dims"
	cfgKeyHybridDecay       = "hybrid_decay"
	cfgKeyHybridNeighborCap = "hybrid_neighbor_cap"
	cfgKeyChunkMaxTokens    = "chunk_max_tokens"
	cfgKeyChunkOverlap      = "chunk_overlap"
	cfgKeyTokenizer         = "tokenizer"
	cfgKeyHealthInterval    = "health_interval"
	cfgKeyReadinessTimeout  = "readiness_timeout"
)

var flagKeys = map[string]string{
	cfgKeyEngine:         "engine",
	cfgKeyDriver:         "driver",
	cfgKeyLibSQLURL:      "libsql-url",
	cfgKeyAuthToken:      "auth-token",
	cfgKeyDataDir:        "data-dir",
	cfgKeyDatabaseURL:    "database-url",
	cfgKeyActiveDatabase: "database",
	cfgKeyAutoCreate:     "auto-create",
}

// loadConfig builds the database config. Precedence: flags, then config.yaml,
// then the environment, then defaults. A missing config.yaml is not an error.
func loadConfig(cmd *cobra.Command) (*database.Config, error) {
	v := viper.New()
	if flagConfig != "" {
		v.SetConfigFile(flagConfig)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mcp-memory-graph"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}
	cfg := database.NewConfig()
	applyConfig(v, cfg)
	return cfg, nil
}

// applyConfig overrides cfg with every key set in v.
func applyConfig(v *viper.Viper, cfg *database.Config) {
	strs := map[string]*string{
		cfgKeyEngine:         &cfg.Engine,
		cfgKeyDriver:         &cfg.Driver,
		cfgKeyLibSQLURL:      &cfg.URL,
		cfgKeyAuthToken:      &cfg.AuthToken,
		cfgKeyDataDir:        &cfg.DataDir,
		cfgKeyDatabaseURL:    &cfg.PostgresURL,
		cfgKeyActiveDatabase: &cfg.ActiveDatabase,
		cfgKeyTokenizer:      &cfg.Tokenizer,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	ints := map[string]*int{
		cfgKeyEmbeddingDims:     &cfg.EmbeddingDims,
		cfgKeyHybridNeighborCap: &cfg.HybridNeighborCap,
		cfgKeyChunkMaxTokens:    &cfg.ChunkMaxTokens,
		cfgKeyChunkOverlap:      &cfg.ChunkOverlap,
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	if v.IsSet(cfgKeyAutoCreate) {
		cfg.AutoCreate = v.GetBool(cfgKeyAutoCreate)
	}
	if v.IsSet(cfgKeyHybridDecay) {
		cfg.HybridDecay = v.GetFloat64(cfgKeyHybridDecay)
	}
	if v.IsSet(cfgKeyHealthInterval) {
		cfg.HealthInterval = v.GetDuration(cfgKeyHealthInterval)
	}
	if v.IsSet(cfgKeyReadinessTimeout) {
		cfg.ReadinessTimeout = v.GetDuration(cfgKeyReadinessTimeout)
	}
}
