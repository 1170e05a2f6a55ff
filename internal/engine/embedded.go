package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// On-disk layout per index: <root>/<name>/sparse.bleve (Bleve dir),
// <root>/<name>/dense.graph (HNSW export), <root>/<name>/dense.meta
// (gob: dims, ID mappings, document records).
const (
	sparseDirName   = "sparse.bleve"
	denseGraphName  = "dense.graph"
	denseMetaName   = "dense.meta"
)

// Embedded is a Client backed by local Bleve and HNSW state. It stands
// in for a remote search engine; the orchestration layer cannot tell
// the difference.
type Embedded struct {
	root   string
	logger *slog.Logger

	mu     sync.Mutex
	shards map[string]*shard
	closed bool
}

// NewEmbedded creates an embedded engine rooted at dir.
func NewEmbedded(dir string, logger *slog.Logger) (*Embedded, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create engine root %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedded{
		root:   dir,
		logger: logger,
		shards: make(map[string]*shard),
	}, nil
}

// Verify interface implementation at compile time.
var _ Client = (*Embedded)(nil)

// IndexExists reports whether the named index exists on disk.
func (e *Embedded) IndexExists(_ context.Context, name string) (bool, error) {
	info, err := os.Stat(e.indexDir(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat index %s: %w", name, err)
	}
	return info.IsDir(), nil
}

// CreateIndex creates the named index with the full field layout.
// Fails if the index already exists; callers check existence first.
func (e *Embedded) CreateIndex(_ context.Context, name string, dims int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("engine is closed")
	}
	if dims <= 0 {
		return fmt.Errorf("index %s: dimensions must be positive, got %d", name, dims)
	}

	dir := e.indexDir(name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("index %s already exists", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir %s: %w", dir, err)
	}

	idx, err := bleve.New(filepath.Join(dir, sparseDirName), newIndexMapping())
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("create sparse index %s: %w", name, err)
	}

	s := newShard(dir, dims, idx)
	if err := s.saveDense(); err != nil {
		_ = idx.Close()
		_ = os.RemoveAll(dir)
		return fmt.Errorf("initialize dense index %s: %w", name, err)
	}

	e.shards[name] = s
	e.logger.Info("index created",
		slog.String("index", name),
		slog.Int("dimensions", dims))
	return nil
}

// DeleteIndex removes the named index; missing index is not an error.
func (e *Embedded) DeleteIndex(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.shards[name]; ok {
		_ = s.close()
		delete(e.shards, name)
	}

	dir := e.indexDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	return nil
}

// BulkUpsert writes documents keyed by ChunkID. Per-document failures
// are counted, never raised; the batch keeps going.
func (e *Embedded) BulkUpsert(ctx context.Context, name string, docs []Document) (BulkResult, error) {
	s, err := e.shard(name)
	if err != nil {
		return BulkResult{}, err
	}
	return s.upsert(ctx, docs)
}

// SearchVector runs nearest-neighbor search with optional language filter.
func (e *Embedded) SearchVector(ctx context.Context, name string, vector []float32, k int, language string) ([]Hit, error) {
	s, err := e.shard(name)
	if err != nil {
		return nil, err
	}
	return s.searchVector(ctx, vector, k, language)
}

// SearchText runs a lexical match with optional language filter.
func (e *Embedded) SearchText(ctx context.Context, name string, query string, k int, language string) ([]Hit, error) {
	s, err := e.shard(name)
	if err != nil {
		return nil, err
	}
	return s.searchText(ctx, query, k, language)
}

// Close closes all open shards.
func (e *Embedded) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	for name, s := range e.shards {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %s: %w", name, err)
		}
	}
	e.shards = make(map[string]*shard)
	return firstErr
}

func (e *Embedded) indexDir(name string) string {
	return filepath.Join(e.root, name)
}

// shard returns the open shard for name, opening it from disk if needed.
func (e *Embedded) shard(name string) (*shard, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, fmt.Errorf("engine is closed")
	}
	if s, ok := e.shards[name]; ok {
		return s, nil
	}

	dir := e.indexDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("index %s does not exist", name)
	}

	s, err := openShard(dir)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", name, err)
	}
	e.shards[name] = s
	return s, nil
}

// bleveDocID converts a chunk ID to the sparse index's document ID.
func bleveDocID(chunkID int64) string {
	return strconv.FormatInt(chunkID, 10)
}
