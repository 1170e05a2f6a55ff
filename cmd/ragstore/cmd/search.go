package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	ragerrors "github.com/spyrelabs/ragstore/internal/errors"
	"github.com/spyrelabs/ragstore/internal/index"
	"github.com/spyrelabs/ragstore/internal/output"
)

type searchOptions struct {
	mode     string
	topK     int
	language string
	format   string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search the index in one of three modes:

  dense   semantic nearest-neighbor search over embeddings
  sparse  keyword relevance search over raw text
  hybrid  both, fused with reciprocal rank fusion (default)

Examples:
  ragstore search "reciprocal rank fusion"
  ragstore search "error handling" --mode sparse --top-k 10
  ragstore search "batch upsert" --language en --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Retrieval mode: dense, sparse, hybrid")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Number of results (default from config)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Filter by language (empty disables)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	topK := opts.topK
	if topK <= 0 {
		topK = a.cfg.Search.TopK
	}
	language := opts.language
	if language == "" {
		language = a.cfg.Search.Language
	}

	results, err := a.store.Search(ctx, query, index.SearchOptions{
		Mode:     index.Mode(opts.mode),
		TopK:     topK,
		Language: language,
	})
	if err != nil {
		if ragerrors.IsNotReady(err) {
			return fmt.Errorf("no index found. Run 'ragstore ingest' first")
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		out.Dim(fmt.Sprintf("No results for %q", query))
		return nil
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	out.Headerf("Found %d results for %q (%s)", len(results), query, opts.mode)
	out.Newline()
	for i, r := range results {
		location := fmt.Sprintf("%s#%d", r.Filename, r.ChunkID)
		out.Result(i+1, location, r.Score, r.PageContent, 3)
	}
	return nil
}
