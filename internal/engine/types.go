// Package engine defines the search-engine client boundary and an
// embedded implementation backed by Bleve (lexical) and HNSW (vector).
// The orchestration layer in internal/index depends only on Client.
package engine

import (
	"context"
	"fmt"
)

// Document is the persisted record: chunk fields plus embedding and the
// derived chunk ID used as the upsert key.
type Document struct {
	ChunkID     int64     `json:"chunk_id"`
	Embedding   []float32 `json:"embedding,omitempty"`
	PageContent string    `json:"page_content"`
	Filename    string    `json:"filename"`
	Type        string    `json:"type"`
	Source      string    `json:"source"`
	Language    string    `json:"language"`
}

// Hit is a scored document returned from a query. The embedding is not
// hydrated on hits.
type Hit struct {
	Doc   Document
	Score float64
}

// BulkResult reports success/failure counts for a bulk upsert.
// Bulk writes never fail per-document; they count.
type BulkResult struct {
	Succeeded int
	Failed    int
}

// Client is the search-engine boundary consumed by the orchestration
// layer. Implementations must treat upserts keyed by ChunkID as
// insert-or-overwrite.
type Client interface {
	// IndexExists reports whether the named index exists.
	IndexExists(ctx context.Context, name string) (bool, error)

	// CreateIndex creates the named index with a vector field of the
	// given dimensionality, a full-text content field, and keyword
	// fields for filename/type/source/language.
	CreateIndex(ctx context.Context, name string, dims int) error

	// DeleteIndex removes the named index and its on-disk state.
	DeleteIndex(ctx context.Context, name string) error

	// BulkUpsert writes documents keyed by ChunkID, returning counts.
	BulkUpsert(ctx context.Context, name string, docs []Document) (BulkResult, error)

	// SearchVector runs nearest-neighbor search over the vector field,
	// optionally filtered by exact language match ("" disables).
	SearchVector(ctx context.Context, name string, vector []float32, k int, language string) ([]Hit, error)

	// SearchText runs a lexical match over the content field, scored by
	// the engine's relevance function, optionally language-filtered.
	SearchText(ctx context.Context, name string, query string, k int, language string) ([]Hit, error)

	// Close releases all resources.
	Close() error
}

// ErrDimensionMismatch indicates a vector with the wrong dimensionality
// for its index.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
