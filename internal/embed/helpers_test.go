package embed

import (
	"context"
	"fmt"
)

// fakeEmbedder is a deterministic in-memory embedder for tests.
// It records call counts so caching behavior can be asserted.
type fakeEmbedder struct {
	model      string
	dims       int
	docCalls   int
	queryCalls int
	closed     bool
}

func newFakeEmbedder(model string, dims int) *fakeEmbedder {
	return &fakeEmbedder{model: model, dims: dims}
}

// vectorFor produces a stable pseudo-embedding for a text.
func (f *fakeEmbedder) vectorFor(text string) []float32 {
	vec := make([]float32, f.dims)
	var h uint32 = 2166136261
	for _, b := range []byte(text) {
		h = (h ^ uint32(b)) * 16777619
	}
	for i := range vec {
		h = h*1664525 + 1013904223
		vec[i] = float32(h%1000) / 1000.0
	}
	return vec
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.docCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queryCalls++
	return f.vectorFor(text), nil
}

func (f *fakeEmbedder) ModelName() string { return f.model }

func (f *fakeEmbedder) Close() error {
	if f.closed {
		return fmt.Errorf("already closed")
	}
	f.closed = true
	return nil
}
