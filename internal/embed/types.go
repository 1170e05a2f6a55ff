// Package embed provides the embedding-service client used by ingestion
// and retrieval, plus caching around it.
package embed

import (
	"context"
	"time"
)

// Common embedding constants.
const (
	// DefaultMaxTokens is the default per-text token limit.
	DefaultMaxTokens = 512

	// DefaultQueryCacheSize is the default number of query embeddings
	// kept in the LRU cache.
	DefaultQueryCacheSize = 1000

	// DefaultRequestTimeout bounds a single embedding HTTP request.
	DefaultRequestTimeout = 60 * time.Second
)

// Config identifies an embedding client. Equality of the full tuple is
// the cache-validity test in Cache.Ensure.
type Config struct {
	Model     string
	Endpoint  string
	MaxTokens int
}

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedDocuments generates embeddings for a batch of texts in one call.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}
