package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "data_dir: /from/file\ndatabase: filedb\nhybrid_decay: 0.25\nchunk_max_tokens: 128\nhealth_interval: 5s\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("ACTIVE_DATABASE", "envdb")
	t.Setenv("CHUNK_OVERLAP", "16")

	flagConfig = path
	t.Cleanup(func() { flagConfig = "" })

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("data-dir", "./data", "")
	cmd.Flags().String("database", "default", "")
	require.NoError(t, cmd.Flags().Set("data-dir", "/from/flag"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.DataDir)
	assert.Equal(t, "filedb", cfg.ActiveDatabase)
	assert.Equal(t, 0.25, cfg.HybridDecay)
	assert.Equal(t, 128, cfg.ChunkMaxTokens)
	assert.Equal(t, 16, cfg.ChunkOverlap)
	assert.Equal(t, "5s", cfg.HealthInterval.String())
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	flagConfig = filepath.Join(t.TempDir(), "absent.yaml")
	t.Cleanup(func() { flagConfig = "" })

	_, err := loadConfig(&cobra.Command{Use: "test"})
	require.Error(t, err)
}
