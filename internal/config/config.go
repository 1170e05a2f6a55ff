// Package config loads ragstore configuration from YAML with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ragstore configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
}

// PathsConfig configures where ragstore keeps its local state.
type PathsConfig struct {
	// DataDir holds the embedded engine's index files and the telemetry DB.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// CacheDir holds job and document status records (jobs/, docs/).
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// IndexConfig configures index naming.
type IndexConfig struct {
	// Prefix namespaces physical index names (lowercased).
	Prefix string `yaml:"prefix" json:"prefix"`

	// Name is the logical collection name (lowercased). The physical
	// index name is derived as <prefix>_<md5hex(name)>.
	Name string `yaml:"name" json:"name"`
}

// EmbeddingsConfig configures the remote embedding service.
type EmbeddingsConfig struct {
	Model     string `yaml:"model" json:"model"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`

	// QueryCacheSize is the number of query embeddings kept in the LRU cache.
	QueryCacheSize int `yaml:"query_cache_size" json:"query_cache_size"`
}

// SearchConfig configures ingestion batching and retrieval.
type SearchConfig struct {
	// BatchSize is the ingestion batch size (default: 10).
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// TopK is the default number of results returned (default: 5).
	TopK int `yaml:"top_k" json:"top_k"`

	// RRFConstant is the rank-fusion damping constant (default: 60).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// Language is the default language filter ("" disables filtering).
	Language string `yaml:"language" json:"language"`
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	root := filepath.Join(home, ".ragstore")

	return &Config{
		Paths: PathsConfig{
			DataDir:  filepath.Join(root, "data"),
			CacheDir: filepath.Join(root, "cache"),
		},
		Index: IndexConfig{
			Prefix: "rag",
			Name:   "default",
		},
		Embeddings: EmbeddingsConfig{
			Model:          "all-minilm",
			Endpoint:       "http://localhost:8080",
			MaxTokens:      512,
			QueryCacheSize: 1000,
		},
		Search: SearchConfig{
			BatchSize:   10,
			TopK:        5,
			RRFConstant: 60,
		},
	}
}

// Load reads configuration from the given YAML file, applies environment
// overrides, and validates the result. A missing file is not an error;
// defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env + defaults
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides configuration from RAGSTORE_* environment variables.
// Environment always wins over file values.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("RAGSTORE_DATA_DIR", &c.Paths.DataDir)
	setString("RAGSTORE_CACHE_DIR", &c.Paths.CacheDir)
	setString("RAGSTORE_INDEX_PREFIX", &c.Index.Prefix)
	setString("RAGSTORE_INDEX_NAME", &c.Index.Name)
	setString("RAGSTORE_EMBED_MODEL", &c.Embeddings.Model)
	setString("RAGSTORE_EMBED_ENDPOINT", &c.Embeddings.Endpoint)
	setInt("RAGSTORE_EMBED_MAX_TOKENS", &c.Embeddings.MaxTokens)
	setInt("RAGSTORE_BATCH_SIZE", &c.Search.BatchSize)
	setInt("RAGSTORE_TOP_K", &c.Search.TopK)
	setInt("RAGSTORE_RRF_CONSTANT", &c.Search.RRFConstant)
	setString("RAGSTORE_LANGUAGE", &c.Search.Language)

	// Index names are case-insensitive in the original system
	c.Index.Prefix = strings.ToLower(c.Index.Prefix)
	c.Index.Name = strings.ToLower(c.Index.Name)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Index.Prefix == "" {
		return fmt.Errorf("index.prefix must not be empty")
	}
	if c.Index.Name == "" {
		return fmt.Errorf("index.name must not be empty")
	}
	if c.Search.BatchSize <= 0 {
		return fmt.Errorf("search.batch_size must be positive, got %d", c.Search.BatchSize)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.RRFConstant < 0 {
		return fmt.Errorf("search.rrf_constant must not be negative, got %d", c.Search.RRFConstant)
	}
	if c.Embeddings.MaxTokens <= 0 {
		return fmt.Errorf("embeddings.max_tokens must be positive, got %d", c.Embeddings.MaxTokens)
	}
	return nil
}

// JobsDir returns the directory holding job status records.
func (c *Config) JobsDir() string {
	return filepath.Join(c.Paths.CacheDir, "jobs")
}

// DocsDir returns the directory holding document metadata records.
func (c *Config) DocsDir() string {
	return filepath.Join(c.Paths.CacheDir, "docs")
}
