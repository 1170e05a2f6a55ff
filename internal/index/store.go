package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spyrelabs/ragstore/internal/embed"
	"github.com/spyrelabs/ragstore/internal/engine"
	ragerrors "github.com/spyrelabs/ragstore/internal/errors"
)

// StoreConfig configures a HybridStore.
type StoreConfig struct {
	// Client is the search-engine boundary.
	Client engine.Client

	// Embedders supplies embedding clients keyed by configuration.
	Embedders *embed.Cache

	// Embedding identifies the embedding service for this store.
	// One consistent model per index; mixing models mixes dimensions.
	Embedding embed.Config

	// Prefix and Name determine the physical index name.
	Prefix string
	Name   string

	// DataDir is scanned for index-name-prefixed cache files on Reset.
	DataDir string

	// RRFConstant is the hybrid fusion damping constant (default: 60).
	RRFConstant int

	// Metrics receives per-search telemetry (optional).
	Metrics MetricsRecorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// HybridStore implements Store against an engine.Client, serving all
// three retrieval modes from one index.
type HybridStore struct {
	client    engine.Client
	embedders *embed.Cache
	embedding embed.Config
	name      string
	dataDir   string
	rrfK      int
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// Verify interface implementation at compile time.
var _ Store = (*HybridStore)(nil)

// NewHybridStore creates a store for the configured index.
func NewHybridStore(cfg StoreConfig) (*HybridStore, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("engine client is required")
	}
	if cfg.Embedders == nil {
		return nil, fmt.Errorf("embedder cache is required")
	}
	if cfg.Prefix == "" || cfg.Name == "" {
		return nil, fmt.Errorf("index prefix and name are required")
	}
	if cfg.RRFConstant <= 0 {
		cfg.RRFConstant = 60
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &HybridStore{
		client:    cfg.Client,
		embedders: cfg.Embedders,
		embedding: cfg.Embedding,
		name:      PhysicalName(cfg.Prefix, cfg.Name),
		dataDir:   cfg.DataDir,
		rrfK:      cfg.RRFConstant,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}, nil
}

// IndexName returns the physical index name.
func (s *HybridStore) IndexName() string {
	return s.name
}

// Ready reports whether the index exists and can serve reads.
func (s *HybridStore) Ready(ctx context.Context) (bool, error) {
	return s.client.IndexExists(ctx, s.name)
}

// ensureIndex creates the index with the given dimensionality if it
// does not exist yet. Idempotent; an existing index is left untouched
// (a schema mismatch surfaces later as insert failures).
func (s *HybridStore) ensureIndex(ctx context.Context, dims int) error {
	exists, err := s.client.IndexExists(ctx, s.name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.name, err)
	}
	if exists {
		s.logger.Info("index already present",
			slog.String("index", s.name))
		return nil
	}
	return s.client.CreateIndex(ctx, s.name, dims)
}

// Reset deletes the index and any local cache files carrying the
// index-name prefix. Idempotent: a missing index is a logged no-op.
func (s *HybridStore) Reset(ctx context.Context) error {
	exists, err := s.client.IndexExists(ctx, s.name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.name, err)
	}
	if !exists {
		s.logger.Info("index does not exist, nothing to reset",
			slog.String("index", s.name))
	} else {
		if err := s.client.DeleteIndex(ctx, s.name); err != nil {
			return fmt.Errorf("delete index %s: %w", s.name, err)
		}
		s.logger.Info("index deleted", slog.String("index", s.name))
	}

	s.cleanLocalCache()
	return nil
}

// cleanLocalCache removes files under the data dir whose names carry
// the physical index-name prefix (exported snapshots and the like).
func (s *HybridStore) cleanLocalCache() {
	if s.dataDir == "" {
		return
	}
	matches, err := filepath.Glob(filepath.Join(s.dataDir, s.name+"*"))
	if err != nil || len(matches) == 0 {
		s.logger.Info("local cache already clean", slog.String("index", s.name))
		return
	}
	for _, path := range matches {
		if err := os.RemoveAll(path); err != nil {
			s.logger.Error("failed to remove cache file",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
	s.logger.Info("local cache cleaned up", slog.String("index", s.name))
}

// Close releases the embedder cache. The engine client is owned by the
// caller that constructed it.
func (s *HybridStore) Close() error {
	return s.embedders.Close()
}

// notReady builds the caller-catchable NotReady condition.
func (s *HybridStore) notReady() error {
	return ragerrors.NotReady(s.name)
}
