package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spyrelabs/ragstore/internal/chunk"
	"github.com/spyrelabs/ragstore/internal/engine"
)

// Insert embeds and upserts chunks in batches of batchSize.
//
// Chunk identity is computed from each chunk's position in the full
// insert sequence, never its position within a batch, so the same
// input produces the same IDs regardless of batch size. Re-running
// Insert with the same chunks overwrites records in place.
//
// Batches are embedded and written sequentially; a failed batch is
// logged and the remaining batches continue (best-effort per batch,
// not all-or-nothing).
func (s *HybridStore) Insert(ctx context.Context, chunks []chunk.Chunk, batchSize int) error {
	if len(chunks) == 0 {
		s.logger.Debug("nothing to insert")
		return nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	embedder, err := s.embedders.Ensure(s.embedding)
	if err != nil {
		return fmt.Errorf("ensure embedder: %w", err)
	}

	// Dimensionality comes from the first chunk's embedding; the index
	// is fixed to it on first-ever insert.
	sample, err := embedder.EmbedDocuments(ctx, []string{chunks[0].PageContent})
	if err != nil {
		return fmt.Errorf("embed sample chunk: %w", err)
	}
	if len(sample) == 0 || len(sample[0]) == 0 {
		return fmt.Errorf("embedder returned empty sample embedding")
	}
	dims := len(sample[0])

	if err := s.ensureIndex(ctx, dims); err != nil {
		return err
	}

	s.logger.Debug("inserting chunks",
		slog.Int("count", len(chunks)),
		slog.Int("batch_size", batchSize),
		slog.String("index", s.name))

	var totalSucceeded, totalFailed int
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.PageContent
		}

		embeddings, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			s.logger.Error("batch embedding failed, continuing with next batch",
				slog.Int("batch_start", start),
				slog.String("error", err.Error()))
			totalFailed += len(batch)
			continue
		}
		if len(embeddings) != len(batch) {
			s.logger.Error("embedding count mismatch, skipping batch",
				slog.Int("batch_start", start),
				slog.Int("expected", len(batch)),
				slog.Int("got", len(embeddings)))
			totalFailed += len(batch)
			continue
		}

		docs := make([]engine.Document, len(batch))
		for i, c := range batch {
			// Identity from the global sequence position
			id := chunk.ID(c.Filename, start+i, c.PageContent)
			docs[i] = engine.Document{
				ChunkID:     id,
				Embedding:   embeddings[i],
				PageContent: c.PageContent,
				Filename:    c.Filename,
				Type:        c.Type,
				Source:      c.Source,
				Language:    c.Language,
			}
		}

		res, err := s.client.BulkUpsert(ctx, s.name, docs)
		if err != nil {
			s.logger.Error("bulk upsert failed, continuing with next batch",
				slog.Int("batch_start", start),
				slog.String("error", err.Error()))
			totalFailed += len(batch)
			continue
		}

		totalSucceeded += res.Succeeded
		totalFailed += res.Failed
		if res.Failed > 0 {
			s.logger.Error("failed to insert some chunks",
				slog.Int("succeeded", res.Succeeded),
				slog.Int("failed", res.Failed),
				slog.Int("batch_start", start))
		}
		s.logger.Debug("indexed batch",
			slog.Int("succeeded", res.Succeeded),
			slog.Int("failed", res.Failed))
	}

	s.logger.Debug("insert finished",
		slog.Int("succeeded", totalSucceeded),
		slog.Int("failed", totalFailed),
		slog.String("index", s.name))
	return nil
}
