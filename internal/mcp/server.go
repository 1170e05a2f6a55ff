// Package mcp exposes retrieval and job-status operations to AI
// clients over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	ragerrors "github.com/spyrelabs/ragstore/internal/errors"
	"github.com/spyrelabs/ragstore/internal/index"
	"github.com/spyrelabs/ragstore/internal/status"
	"github.com/spyrelabs/ragstore/pkg/version"
)

// Server bridges MCP clients with the retrieval store and the status
// tracker.
type Server struct {
	mcp     *mcp.Server
	store   index.Store
	tracker *status.Tracker
	logger  *slog.Logger
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query    string `json:"query" jsonschema:"the search query to execute"`
	Mode     string `json:"mode,omitempty" jsonschema:"retrieval mode: dense, sparse, or hybrid (default hybrid)"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of results, default 5"`
	Language string `json:"language,omitempty" jsonschema:"filter results by language; empty disables the filter"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked search results"`
}

// SearchResultOutput is a single ranked result.
type SearchResultOutput struct {
	ChunkID     int64   `json:"chunk_id" jsonschema:"deterministic chunk identifier"`
	PageContent string  `json:"page_content" jsonschema:"matched content"`
	Filename    string  `json:"filename" jsonschema:"source document filename"`
	Source      string  `json:"source,omitempty" jsonschema:"source path or URI"`
	Language    string  `json:"language,omitempty" jsonschema:"content language"`
	Score       float64 `json:"score" jsonschema:"relevance score; meaning depends on the mode"`
}

// JobStatusInput defines the input schema for the job_status tool.
type JobStatusInput struct {
	JobID string `json:"job_id" jsonschema:"identifier of the ingestion job"`
}

// JobStatusOutput defines the output schema for the job_status tool.
type JobStatusOutput struct {
	JobID         string            `json:"job_id"`
	Status        string            `json:"status" jsonschema:"PENDING, RUNNING, COMPLETED, or FAILED"`
	Documents     []DocStatusOutput `json:"documents"`
	Error         string            `json:"error,omitempty"`
	LastUpdatedAt string            `json:"last_updated_at"`
}

// DocStatusOutput is one document's status inside a job.
type DocStatusOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// IndexStatusInput is empty; the tool takes no arguments.
type IndexStatusInput struct{}

// IndexStatusOutput reports whether the index can serve queries.
type IndexStatusOutput struct {
	Ready bool `json:"ready" jsonschema:"true when the index exists and can serve searches"`
}

// NewServer creates the MCP server and registers its tools. The
// tracker may be nil, in which case the job_status tool is omitted.
func NewServer(store index.Store, tracker *status.Tracker, logger *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("index store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:   store,
		tracker: tracker,
		logger:  logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "ragstore",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the document index. Supports dense (semantic), sparse (keyword), and hybrid (fused) retrieval modes.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Check whether the document index exists and is ready to serve searches.",
	}, s.indexStatusHandler)

	count := 2
	if s.tracker != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "job_status",
			Description: "Look up the status of an ingestion job and its per-document progress.",
		}, s.jobStatusHandler)
		count++
	}
	s.logger.Debug("MCP tools registered", slog.Int("count", count))
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, errors.New("query parameter is required")
	}

	opts := index.SearchOptions{
		Mode:     index.Mode(input.Mode),
		TopK:     input.TopK,
		Language: input.Language,
	}
	if opts.Mode == "" {
		opts.Mode = index.ModeHybrid
	}

	results, err := s.store.Search(ctx, input.Query, opts)
	if err != nil {
		if ragerrors.IsNotReady(err) {
			return nil, SearchOutput{}, fmt.Errorf("index is not ready; run ingestion first")
		}
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, SearchResultOutput{
			ChunkID:     r.ChunkID,
			PageContent: r.PageContent,
			Filename:    r.Filename,
			Source:      r.Source,
			Language:    r.Language,
			Score:       r.Score,
		})
	}
	return nil, output, nil
}

func (s *Server) indexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	ready, err := s.store.Ready(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, err
	}
	return nil, IndexStatusOutput{Ready: ready}, nil
}

func (s *Server) jobStatusHandler(_ context.Context, _ *mcp.CallToolRequest, input JobStatusInput) (
	*mcp.CallToolResult,
	JobStatusOutput,
	error,
) {
	if input.JobID == "" {
		return nil, JobStatusOutput{}, errors.New("job_id parameter is required")
	}

	job, err := s.tracker.ReadJob(input.JobID)
	if err != nil {
		return nil, JobStatusOutput{}, fmt.Errorf("job %s not found", input.JobID)
	}

	output := JobStatusOutput{
		JobID:         job.JobID,
		Status:        string(job.Status),
		Documents:     make([]DocStatusOutput, len(job.Documents)),
		Error:         job.Error,
		LastUpdatedAt: job.LastUpdatedAt,
	}
	for i, d := range job.Documents {
		output.Documents[i] = DocStatusOutput{ID: d.ID, Status: string(d.Status)}
	}
	return nil, output, nil
}

// Serve runs the server over stdio until the context is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped with error",
			slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
