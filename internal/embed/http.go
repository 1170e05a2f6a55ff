package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// HTTPEmbedder generates embeddings via an OpenAI-compatible
// /v1/embeddings endpoint (vLLM, TEI, LocalAI and friends speak it).
type HTTPEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    Config
}

// Verify interface implementation at compile time.
var _ Embedder = (*HTTPEmbedder)(nil)

// embeddingRequest is the request body for /v1/embeddings.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse is the response body from /v1/embeddings.
type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewHTTPEmbedder creates an embedding client for the given configuration.
func NewHTTPEmbedder(cfg Config) (*HTTPEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint must not be empty")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model must not be empty")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	return &HTTPEmbedder{
		client: &http.Client{
			Transport: transport,
			Timeout:   DefaultRequestTimeout,
		},
		transport: transport,
		config:    cfg,
	}, nil
}

// EmbedDocuments embeds all texts in a single request.
func (e *HTTPEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	truncated := make([]string, len(texts))
	for i, t := range texts {
		truncated[i] = e.truncate(t)
	}

	return e.doEmbed(ctx, truncated)
}

// EmbedQuery embeds a single query text.
func (e *HTTPEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.doEmbed(ctx, []string{e.truncate(text)})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// ModelName returns the model identifier.
func (e *HTTPEmbedder) ModelName() string {
	return e.config.Model
}

// Close releases idle connections.
func (e *HTTPEmbedder) Close() error {
	e.transport.CloseIdleConnections()
	return nil
}

func (e *HTTPEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	url := strings.TrimSuffix(e.config.Endpoint, "/") + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding request failed with status %d: %s", resp.StatusCode, string(msg))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d embeddings",
			len(texts), len(parsed.Data))
	}

	// The API may return entries out of order; the index field is authoritative
	sort.Slice(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	vecs := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// truncate bounds a text to the configured token budget using the
// ~4 chars/token heuristic. The server enforces the real limit; this
// guard keeps oversized chunks from failing the whole batch.
func (e *HTTPEmbedder) truncate(text string) string {
	maxChars := e.config.MaxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	slog.Debug("truncating oversized text for embedding",
		slog.Int("chars", len(text)),
		slog.Int("max_chars", maxChars))
	return text[:maxChars]
}
