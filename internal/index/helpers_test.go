package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spyrelabs/ragstore/internal/embed"
	"github.com/spyrelabs/ragstore/internal/engine"
)

// fakeClient is an in-memory engine.Client that records calls so
// orchestration behavior can be asserted without a real engine.
type fakeClient struct {
	mu      sync.Mutex
	indexes map[string]int             // name -> dims
	docs    map[string]map[int64]engine.Document

	vectorCalls []searchCall
	textCalls   []searchCall

	failBulkAt  int // fail the Nth BulkUpsert call (1-based); 0 disables
	bulkCalls   int
	deleteCalls int
}

type searchCall struct {
	index    string
	k        int
	language string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		indexes: make(map[string]int),
		docs:    make(map[string]map[int64]engine.Document),
	}
}

func (f *fakeClient) IndexExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.indexes[name]
	return ok, nil
}

func (f *fakeClient) CreateIndex(_ context.Context, name string, dims int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.indexes[name]; ok {
		return fmt.Errorf("index %s already exists", name)
	}
	f.indexes[name] = dims
	f.docs[name] = make(map[int64]engine.Document)
	return nil
}

func (f *fakeClient) DeleteIndex(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if _, ok := f.indexes[name]; !ok {
		return fmt.Errorf("index %s does not exist", name)
	}
	delete(f.indexes, name)
	delete(f.docs, name)
	return nil
}

func (f *fakeClient) BulkUpsert(_ context.Context, name string, docs []engine.Document) (engine.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	if f.failBulkAt > 0 && f.bulkCalls == f.failBulkAt {
		return engine.BulkResult{}, fmt.Errorf("simulated bulk failure")
	}
	stored, ok := f.docs[name]
	if !ok {
		return engine.BulkResult{}, fmt.Errorf("index %s does not exist", name)
	}
	for _, d := range docs {
		stored[d.ChunkID] = d
	}
	return engine.BulkResult{Succeeded: len(docs)}, nil
}

// SearchVector returns all stored docs ordered by ChunkID, truncated to
// k, honoring the language filter. Ranking realism is not the point.
func (f *fakeClient) SearchVector(_ context.Context, name string, _ []float32, k int, language string) ([]engine.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorCalls = append(f.vectorCalls, searchCall{index: name, k: k, language: language})
	return f.allHits(name, k, language), nil
}

func (f *fakeClient) SearchText(_ context.Context, name string, _ string, k int, language string) ([]engine.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls = append(f.textCalls, searchCall{index: name, k: k, language: language})
	return f.allHits(name, k, language), nil
}

func (f *fakeClient) allHits(name string, k int, language string) []engine.Hit {
	stored := f.docs[name]
	ids := make([]int64, 0, len(stored))
	for id, d := range stored {
		if language != "" && d.Language != language {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > k {
		ids = ids[:k]
	}
	hits := make([]engine.Hit, len(ids))
	for i, id := range ids {
		hits[i] = engine.Hit{Doc: stored[id], Score: 1.0 - float64(i)*0.01}
	}
	return hits
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) storedIDs(name string) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.docs[name]))
	for id := range f.docs[name] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// fakeEmbedder mirrors the test embedder in internal/embed, local to
// this package to avoid exporting test helpers.
type fakeEmbedder struct {
	dims       int
	docCalls   int
	queryCalls int
}

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

func (f *fakeEmbedder) ModelName() string { return "fake-model" }
func (f *fakeEmbedder) Close() error      { return nil }

func newTestEmbedderCache(dims int) *embed.Cache {
	return embed.NewCacheWithFactory(func(embed.Config) (embed.Embedder, error) {
		return &fakeEmbedder{dims: dims}, nil
	}, 16)
}
