// Package index orchestrates ingestion and retrieval against a search
// engine client: deterministic chunk identity, idempotent batched
// upserts, index-schema lifecycle, and the three query modes.
package index

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/spyrelabs/ragstore/internal/chunk"
	"github.com/spyrelabs/ragstore/internal/engine"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	// ModeDense is similarity search over vector embeddings.
	ModeDense Mode = "dense"
	// ModeSparse is lexical relevance search over raw text.
	ModeSparse Mode = "sparse"
	// ModeHybrid fuses dense and sparse results via reciprocal rank fusion.
	ModeHybrid Mode = "hybrid"
)

// Valid reports whether m is a known retrieval mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeDense, ModeSparse, ModeHybrid:
		return true
	}
	return false
}

// DefaultBatchSize is the default ingestion batch size.
const DefaultBatchSize = 10

// overFetchFactor is how many candidates each sub-query requests per
// requested result, leaving headroom for filtering and fusion.
const overFetchFactor = 3

// Result is returned to callers from Search. Score meaning depends on
// the mode: vector similarity for dense, lexical relevance for sparse,
// fused rank score for hybrid.
type Result struct {
	ChunkID     int64   `json:"chunk_id"`
	PageContent string  `json:"page_content"`
	Filename    string  `json:"filename"`
	Type        string  `json:"type"`
	Source      string  `json:"source"`
	Language    string  `json:"language"`
	Score       float64 `json:"score"`
}

// SearchOptions configures a retrieval call.
type SearchOptions struct {
	// Mode is the retrieval strategy (default: hybrid).
	Mode Mode

	// TopK is the number of results to return (default: 5).
	TopK int

	// Language filters results by exact language match; empty disables
	// the filter entirely.
	Language string
}

// Store is the capability interface callers depend on. Concrete
// implementations are selected at construction time.
type Store interface {
	// Insert embeds and upserts chunks in batches of batchSize.
	Insert(ctx context.Context, chunks []chunk.Chunk, batchSize int) error

	// Search returns ranked results for the query.
	Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error)

	// Ready reports whether the index exists and can serve reads.
	Ready(ctx context.Context) (bool, error)

	// Reset deletes the index and associated local cache files.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// MetricsRecorder receives per-search telemetry. Implementations must
// tolerate being called concurrently.
type MetricsRecorder interface {
	RecordSearch(mode string, latency time.Duration)
}

// PhysicalName derives the on-engine index name from the logical
// collection name: <prefix>_<md5hex(name)>. Decouples user-visible
// names from engine naming restrictions.
func PhysicalName(prefix, name string) string {
	sum := md5.Sum([]byte(name))
	return prefix + "_" + hex.EncodeToString(sum[:])
}

// resultFromDoc maps an engine document plus score into a caller Result.
func resultFromDoc(doc engine.Document, score float64) Result {
	return Result{
		ChunkID:     doc.ChunkID,
		PageContent: doc.PageContent,
		Filename:    doc.Filename,
		Type:        doc.Type,
		Source:      doc.Source,
		Language:    doc.Language,
		Score:       score,
	}
}
