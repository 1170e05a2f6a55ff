package index

import (
	"context"
	"fmt"
	"time"

	"github.com/spyrelabs/ragstore/internal/engine"
	"github.com/spyrelabs/ragstore/internal/search"
)

// Search executes a retrieval query in the requested mode.
// Returns a NotReady error when the index does not exist; callers catch
// it and ingest first. An empty opts.Language disables the language
// filter for all modes.
func (s *HybridStore) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("unknown search mode %q", opts.Mode)
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	ready, err := s.Ready(ctx)
	if err != nil {
		return nil, fmt.Errorf("check index %s: %w", s.name, err)
	}
	if !ready {
		return nil, s.notReady()
	}

	started := time.Now()
	results, err := s.search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSearch(string(opts.Mode), time.Since(started))
	}
	return results, nil
}

func (s *HybridStore) search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	// Over-fetch for filtering and fusion headroom
	limit := opts.TopK * overFetchFactor

	switch opts.Mode {
	case ModeDense:
		hits, err := s.denseHits(ctx, query, limit, opts.Language)
		if err != nil {
			return nil, err
		}
		return toResults(hits, opts.TopK), nil

	case ModeSparse:
		hits, err := s.client.SearchText(ctx, s.name, query, limit, opts.Language)
		if err != nil {
			return nil, fmt.Errorf("sparse search: %w", err)
		}
		return toResults(hits, opts.TopK), nil

	default: // ModeHybrid
		dense, err := s.denseHits(ctx, query, limit, opts.Language)
		if err != nil {
			return nil, err
		}
		sparse, err := s.client.SearchText(ctx, s.name, query, limit, opts.Language)
		if err != nil {
			return nil, fmt.Errorf("sparse search: %w", err)
		}
		fused := search.FuseRRF(dense, sparse, opts.TopK, s.rrfK)
		return toResults(fused, opts.TopK), nil
	}
}

// denseHits embeds the query and runs nearest-neighbor search.
func (s *HybridStore) denseHits(ctx context.Context, query string, limit int, language string) ([]engine.Hit, error) {
	embedder, err := s.embedders.Ensure(s.embedding)
	if err != nil {
		return nil, fmt.Errorf("ensure embedder: %w", err)
	}

	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.client.SearchVector(ctx, s.name, vector, limit, language)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}
	return hits, nil
}

// toResults truncates hits to topK and maps them to caller results.
// Hit order is preserved; ties keep original retrieval order.
func toResults(hits []engine.Hit, topK int) []Result {
	if len(hits) > topK {
		hits = hits[:topK]
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = resultFromDoc(h.Doc, h.Score)
	}
	return results
}
