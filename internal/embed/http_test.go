package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmbeddingServer returns a test server speaking the /v1/embeddings
// protocol, answering each input with a 3-dim vector of its length.
func newEmbeddingServer(t *testing.T, reverse bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var resp embeddingResponse
		for i, text := range req.Input {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: []float32{float32(len(text)), 0, 1}})
		}
		if reverse {
			for i, j := 0, len(resp.Data)-1; i < j; i, j = i+1, j-1 {
				resp.Data[i], resp.Data[j] = resp.Data[j], resp.Data[i]
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestHTTPEmbedDocuments(t *testing.T) {
	srv := newEmbeddingServer(t, false)
	defer srv.Close()

	e, err := NewHTTPEmbedder(Config{Model: "m", Endpoint: srv.URL, MaxTokens: 128})
	require.NoError(t, err)
	defer e.Close()

	vecs, err := e.EmbedDocuments(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(3), vecs[1][0])
}

func TestHTTPEmbedDocumentsReordersByIndex(t *testing.T) {
	srv := newEmbeddingServer(t, true)
	defer srv.Close()

	e, err := NewHTTPEmbedder(Config{Model: "m", Endpoint: srv.URL, MaxTokens: 128})
	require.NoError(t, err)
	defer e.Close()

	vecs, err := e.EmbedDocuments(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, float32(1), vecs[0][0], "index field wins over wire order")
	assert.Equal(t, float32(3), vecs[1][0])
}

func TestHTTPEmbedQuery(t *testing.T) {
	srv := newEmbeddingServer(t, false)
	defer srv.Close()

	e, err := NewHTTPEmbedder(Config{Model: "m", Endpoint: srv.URL, MaxTokens: 128})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0, 1}, vec)
}

func TestHTTPEmbedEmptyBatch(t *testing.T) {
	e, err := NewHTTPEmbedder(Config{Model: "m", Endpoint: "http://unused", MaxTokens: 128})
	require.NoError(t, err)
	defer e.Close()

	vecs, err := e.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestHTTPEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, err := NewHTTPEmbedder(Config{Model: "m", Endpoint: srv.URL, MaxTokens: 128})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.EmbedQuery(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPEmbedderTruncates(t *testing.T) {
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotLen = len(req.Input[0])
		resp := embeddingResponse{}
		resp.Data = append(resp.Data, struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}{Index: 0, Embedding: []float32{1}})
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	e, err := NewHTTPEmbedder(Config{Model: "m", Endpoint: srv.URL, MaxTokens: 4})
	require.NoError(t, err)
	defer e.Close()

	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'z'
	}
	_, err = e.EmbedQuery(context.Background(), string(long))
	require.NoError(t, err)
	assert.Equal(t, 16, gotLen, "text truncated to max_tokens*4 chars")
}

func TestNewHTTPEmbedderValidation(t *testing.T) {
	_, err := NewHTTPEmbedder(Config{Model: "m"})
	assert.Error(t, err)

	_, err = NewHTTPEmbedder(Config{Endpoint: "http://x"})
	assert.Error(t, err)
}
