package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spyrelabs/ragstore/internal/config"
	"github.com/spyrelabs/ragstore/internal/embed"
	"github.com/spyrelabs/ragstore/internal/engine"
	"github.com/spyrelabs/ragstore/internal/index"
	"github.com/spyrelabs/ragstore/internal/status"
	"github.com/spyrelabs/ragstore/internal/telemetry"
)

// app bundles the wired components a command needs. Construct with
// openApp and always defer Close.
type app struct {
	cfg     *config.Config
	client  *engine.Embedded
	store   *index.HybridStore
	tracker *status.Tracker

	metrics      *telemetry.QueryMetrics
	metricsStore *telemetry.SQLiteMetricsStore
}

// openApp loads configuration and wires the engine, store, and
// tracker. When withMetrics is set, searches are recorded to the
// telemetry database under the data dir.
func openApp(withMetrics bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	client, err := engine.NewEmbedded(cfg.Paths.DataDir, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}

	a := &app{cfg: cfg, client: client}

	if withMetrics {
		store, err := telemetry.OpenSQLiteMetricsStore(filepath.Join(cfg.Paths.DataDir, "metrics.db"))
		if err != nil {
			// Telemetry is optional; searches proceed without it.
			slog.Warn("telemetry disabled", slog.String("error", err.Error()))
		} else {
			a.metricsStore = store
			a.metrics = telemetry.NewQueryMetrics(store, 0)
		}
	}

	var recorder index.MetricsRecorder
	if a.metrics != nil {
		recorder = a.metrics
	}

	a.store, err = index.NewHybridStore(index.StoreConfig{
		Client:    client,
		Embedders: embed.NewCache(cfg.Embeddings.QueryCacheSize),
		Embedding: embed.Config{
			Model:     cfg.Embeddings.Model,
			Endpoint:  cfg.Embeddings.Endpoint,
			MaxTokens: cfg.Embeddings.MaxTokens,
		},
		Prefix:      cfg.Index.Prefix,
		Name:        cfg.Index.Name,
		DataDir:     cfg.Paths.DataDir,
		RRFConstant: cfg.Search.RRFConstant,
		Metrics:     recorder,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.tracker, err = status.NewTracker(cfg.Paths.CacheDir, slog.Default())
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close releases all resources in reverse construction order.
func (a *app) Close() {
	if a.metrics != nil {
		_ = a.metrics.Close()
	}
	if a.metricsStore != nil {
		_ = a.metricsStore.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
}
