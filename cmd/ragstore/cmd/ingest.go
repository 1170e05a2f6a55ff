package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spyrelabs/ragstore/internal/chunk"
	"github.com/spyrelabs/ragstore/internal/output"
	"github.com/spyrelabs/ragstore/internal/status"
)

// docIndexing is the in-flight document stage recorded in job records.
const docIndexing = status.DocStatus("INDEXING")

type ingestOptions struct {
	batchSize int
	workers   int
	jobID     string
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <chunks.jsonl>",
		Short: "Ingest pre-chunked documents into the index",
		Long: `Ingest chunks from a JSONL file, one chunk object per line:

  {"filename": "report.pdf", "page_content": "...", "type": "text", "source": "/docs/report.pdf", "language": "en"}

Chunks are grouped by filename into documents. Each document is
embedded and upserted in batches; re-running the same input is
idempotent. Progress is tracked per job and per document under the
cache directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.batchSize, "batch-size", "b", 0, "Chunks per embedding batch (default from config)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "Concurrent document workers")
	cmd.Flags().StringVar(&opts.jobID, "job-id", "", "Job identifier (generated when empty)")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, path string, opts ingestOptions) error {
	out := output.New(cmd.OutOrStdout())

	docs, order, err := readChunkFile(path)
	if err != nil {
		return err
	}
	if len(order) == 0 {
		out.Warning("no chunks found, nothing to ingest")
		return nil
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	batchSize := opts.batchSize
	if batchSize <= 0 {
		batchSize = a.cfg.Search.BatchSize
	}
	workers := opts.workers
	if workers <= 0 {
		workers = 1
	}

	jobID := opts.jobID
	if jobID == "" {
		jobID = fmt.Sprintf("job-%d", time.Now().UnixNano())
	}

	docIDs := make([]string, len(order))
	for i, filename := range order {
		docIDs[i] = docIDFor(filename)
	}
	if err := a.tracker.InitJob(jobID, docIDs); err != nil {
		return err
	}
	for i, filename := range order {
		if err := a.tracker.InitDocMetadata(docIDs[i], map[string]any{
			"filename": filename,
			"chunks":   len(docs[filename]),
		}); err != nil {
			return err
		}
	}

	out.Headerf("Ingesting %d documents (%s)", len(order), jobID)

	var failed int
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	failures := make(chan string, len(order))

	for i, filename := range order {
		docID := docIDs[i]
		chunks := docs[filename]
		g.Go(func() error {
			a.tracker.UpdateJobProgress(jobID, docID, docIndexing, status.JobRunning, "")

			started := time.Now()
			err := a.store.Insert(gctx, chunks, batchSize)
			elapsed := time.Since(started).Seconds()

			if err != nil {
				slog.Error("document ingestion failed",
					slog.String("doc_id", docID),
					slog.String("error", err.Error()))
				a.tracker.UpdateDocMetadata(docID, map[string]any{
					"timing_in_secs": map[string]any{"insert": elapsed},
				}, err.Error())
				a.tracker.UpdateJobProgress(jobID, docID, status.DocFailed, status.JobRunning, "")
				failures <- docID
				return nil // Keep ingesting the remaining documents
			}

			a.tracker.UpdateDocMetadata(docID, map[string]any{
				"status":         string(status.DocCompleted),
				"timing_in_secs": map[string]any{"insert": elapsed},
			}, "")
			a.tracker.UpdateJobProgress(jobID, docID, status.DocCompleted, status.JobRunning, "")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	close(failures)
	failedDocs := make(map[string]bool)
	for docID := range failures {
		failedDocs[docID] = true
		failed++
	}

	// Final job-level transition; the last document's status is restated
	// unchanged since UpdateJobProgress always touches one document.
	last := docIDs[len(docIDs)-1]
	lastStatus := status.DocCompleted
	if failedDocs[last] {
		lastStatus = status.DocFailed
	}
	if failed == len(order) {
		a.tracker.UpdateJobProgress(jobID, last, lastStatus, status.JobFailed,
			fmt.Sprintf("all %d documents failed", failed))
		out.Errorf("ingestion failed: all %d documents failed", failed)
		return fmt.Errorf("ingestion failed")
	}
	a.tracker.UpdateJobProgress(jobID, last, lastStatus, status.JobCompleted, "")

	if failed > 0 {
		out.Warning(fmt.Sprintf("%d of %d documents failed; see 'ragstore status %s'", failed, len(order), jobID))
	}
	out.Successf("ingested %d documents into %s", len(order)-failed, a.store.IndexName())
	return nil
}

// readChunkFile parses a JSONL chunk file, grouping chunks by filename
// and preserving first-seen document order.
func readChunkFile(path string) (map[string][]chunk.Chunk, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open chunk file: %w", err)
	}
	defer f.Close()

	docs := make(map[string][]chunk.Chunk)
	var order []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var c chunk.Chunk
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, nil, fmt.Errorf("parse chunk at line %d: %w", lineNo, err)
		}
		if c.Filename == "" {
			return nil, nil, fmt.Errorf("chunk at line %d has no filename", lineNo)
		}
		if _, seen := docs[c.Filename]; !seen {
			order = append(order, c.Filename)
		}
		docs[c.Filename] = append(docs[c.Filename], c)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read chunk file: %w", err)
	}
	return docs, order, nil
}

// docIDFor derives a filesystem-safe document ID from a filename.
func docIDFor(filename string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return r.Replace(filename)
}
