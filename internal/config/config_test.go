package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "rag", cfg.Index.Prefix)
	assert.Equal(t, "default", cfg.Index.Name)
	assert.Equal(t, 10, cfg.Search.BatchSize)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Search.TopK, cfg.Search.TopK)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
index:
  prefix: corp
  name: Reports
embeddings:
  model: granite-embedding
  endpoint: http://embed:9000
  max_tokens: 256
search:
  batch_size: 25
  top_k: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "corp", cfg.Index.Prefix)
	assert.Equal(t, "reports", cfg.Index.Name, "index names are lowercased")
	assert.Equal(t, "granite-embedding", cfg.Embeddings.Model)
	assert.Equal(t, 25, cfg.Search.BatchSize)
	assert.Equal(t, 8, cfg.Search.TopK)
	// Untouched fields keep defaults
	assert.Equal(t, 60, cfg.Search.RRFConstant)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  name: fromfile\n"), 0o644))

	t.Setenv("RAGSTORE_INDEX_NAME", "FromEnv")
	t.Setenv("RAGSTORE_TOP_K", "11")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Index.Name)
	assert.Equal(t, 11, cfg.Search.TopK)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty prefix", func(c *Config) { c.Index.Prefix = "" }},
		{"empty name", func(c *Config) { c.Index.Name = "" }},
		{"zero batch size", func(c *Config) { c.Search.BatchSize = 0 }},
		{"negative top_k", func(c *Config) { c.Search.TopK = -1 }},
		{"negative rrf", func(c *Config) { c.Search.RRFConstant = -1 }},
		{"zero max tokens", func(c *Config) { c.Embeddings.MaxTokens = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStatusDirs(t *testing.T) {
	cfg := Default()
	cfg.Paths.CacheDir = "/tmp/ragcache"
	assert.Equal(t, filepath.Join("/tmp/ragcache", "jobs"), cfg.JobsDir())
	assert.Equal(t, filepath.Join("/tmp/ragcache", "docs"), cfg.DocsDir())
}
