package engine

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/coder/hnsw"
)

// HNSW parameters. EfSearch mirrors the ef_search the original index
// schema requested from its engine.
const (
	hnswM        = 16
	hnswEfSearch = 100
	hnswMl       = 0.25
)

// shard is one index: a Bleve lexical index plus an HNSW graph and the
// document records both sides hydrate hits from.
type shard struct {
	mu  sync.RWMutex
	dir string

	sparse bleve.Index

	dims    int
	graph   *hnsw.Graph[uint64]
	idMap   map[int64]uint64 // chunk ID -> graph key
	keyMap  map[uint64]int64 // graph key -> chunk ID
	nextKey uint64
	docs    map[int64]Document // embeddings stripped
}

// denseMeta is the gob-persisted dense-side state.
type denseMeta struct {
	Dims    int
	IDMap   map[int64]uint64
	NextKey uint64
	Docs    map[int64]Document
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = hnswM
	g.EfSearch = hnswEfSearch
	g.Ml = hnswMl
	return g
}

func newShard(dir string, dims int, sparse bleve.Index) *shard {
	return &shard{
		dir:    dir,
		sparse: sparse,
		dims:   dims,
		graph:  newGraph(),
		idMap:  make(map[int64]uint64),
		keyMap: make(map[uint64]int64),
		docs:   make(map[int64]Document),
	}
}

// openShard loads an existing index from dir.
func openShard(dir string) (*shard, error) {
	metaFile, err := os.Open(filepath.Join(dir, denseMetaName))
	if err != nil {
		return nil, fmt.Errorf("open dense metadata: %w", err)
	}
	defer metaFile.Close()

	var meta denseMeta
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode dense metadata: %w", err)
	}

	sparse, err := bleve.Open(filepath.Join(dir, sparseDirName))
	if err != nil {
		return nil, fmt.Errorf("open sparse index: %w", err)
	}

	s := &shard{
		dir:     dir,
		sparse:  sparse,
		dims:    meta.Dims,
		graph:   newGraph(),
		idMap:   meta.IDMap,
		nextKey: meta.NextKey,
		docs:    meta.Docs,
		keyMap:  make(map[uint64]int64, len(meta.IDMap)),
	}
	for id, key := range meta.IDMap {
		s.keyMap[key] = id
	}

	graphPath := filepath.Join(dir, denseGraphName)
	if _, err := os.Stat(graphPath); err == nil {
		f, err := os.Open(graphPath)
		if err != nil {
			_ = sparse.Close()
			return nil, fmt.Errorf("open dense graph: %w", err)
		}
		defer f.Close()

		// bufio.Reader because hnsw Import requires an io.ByteReader
		if err := s.graph.Import(bufio.NewReader(f)); err != nil {
			_ = sparse.Close()
			return nil, fmt.Errorf("import dense graph: %w", err)
		}
	}

	return s, nil
}

// upsert writes documents into both sides, counting per-document
// failures instead of raising them.
func (s *shard) upsert(_ context.Context, docs []Document) (BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res BulkResult
	batch := s.sparse.NewBatch()

	for _, doc := range docs {
		if len(doc.Embedding) != s.dims {
			slog.Debug("skipping document with mismatched embedding",
				slog.Int64("chunk_id", doc.ChunkID),
				slog.Int("expected", s.dims),
				slog.Int("got", len(doc.Embedding)))
			res.Failed++
			continue
		}

		// Re-upsert of an existing chunk ID orphans the old graph node
		// (lazy deletion; deleting nodes destabilizes small graphs).
		if oldKey, exists := s.idMap[doc.ChunkID]; exists {
			delete(s.keyMap, oldKey)
			delete(s.idMap, doc.ChunkID)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(doc.Embedding))
		copy(vec, doc.Embedding)
		normalizeVectorInPlace(vec)
		s.graph.Add(hnsw.MakeNode(key, vec))

		s.idMap[doc.ChunkID] = key
		s.keyMap[key] = doc.ChunkID

		stored := doc
		stored.Embedding = nil
		s.docs[doc.ChunkID] = stored

		if err := batch.Index(bleveDocID(doc.ChunkID), map[string]interface{}{
			"page_content": doc.PageContent,
			"filename":     doc.Filename,
			"type":         doc.Type,
			"source":       doc.Source,
			"language":     doc.Language,
		}); err != nil {
			res.Failed++
			continue
		}
		res.Succeeded++
	}

	if err := s.sparse.Batch(batch); err != nil {
		// The whole sparse batch is lost; report everything as failed
		slog.Error("sparse batch write failed", slog.String("error", err.Error()))
		res.Failed += res.Succeeded
		res.Succeeded = 0
		return res, nil
	}

	if err := s.saveDense(); err != nil {
		return res, fmt.Errorf("persist dense index: %w", err)
	}
	return res, nil
}

// searchVector finds the k nearest documents, optionally filtered by
// exact language match.
func (s *shard) searchVector(_ context.Context, query []float32, k int, language string) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dims {
		return nil, ErrDimensionMismatch{Expected: s.dims, Got: len(query)}
	}
	if s.graph.Len() == 0 {
		return []Hit{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	// Over-fetch to survive orphaned nodes and the language filter
	fetch := k * 3
	if orphans := s.graph.Len() - len(s.idMap); orphans > 0 {
		fetch += orphans
	}

	nodes := s.graph.Search(normalized, fetch)

	hits := make([]Hit, 0, k)
	for _, node := range nodes {
		id, live := s.keyMap[node.Key]
		if !live {
			continue // lazily deleted
		}
		doc, ok := s.docs[id]
		if !ok {
			continue
		}
		if language != "" && doc.Language != language {
			continue
		}

		distance := s.graph.Distance(normalized, node.Value)
		hits = append(hits, Hit{Doc: doc, Score: 1 - float64(distance)})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// searchText runs a lexical match over page_content, optionally
// filtered by exact language match.
func (s *shard) searchText(ctx context.Context, queryStr string, k int, language string) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match := bleve.NewMatchQuery(queryStr)
	match.SetField("page_content")

	var req *bleve.SearchRequest
	if language != "" {
		term := bleve.NewTermQuery(language)
		term.SetField("language")
		req = bleve.NewSearchRequest(bleve.NewConjunctionQuery(match, term))
	} else {
		req = bleve.NewSearchRequest(match)
	}
	req.Size = k

	result, err := s.sparse.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		doc, ok := s.docs[id]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Doc: doc, Score: hit.Score})
	}
	return hits, nil
}

// saveDense persists the graph and metadata atomically (temp + rename).
// Callers hold the shard lock.
func (s *shard) saveDense() error {
	graphPath := filepath.Join(s.dir, denseGraphName)
	tmpGraph := graphPath + ".tmp"

	f, err := os.Create(tmpGraph)
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}
	if err := s.graph.Export(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpGraph)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpGraph)
		return fmt.Errorf("close graph file: %w", err)
	}
	if err := os.Rename(tmpGraph, graphPath); err != nil {
		_ = os.Remove(tmpGraph)
		return fmt.Errorf("rename graph file: %w", err)
	}

	metaPath := filepath.Join(s.dir, denseMetaName)
	tmpMeta := metaPath + ".tmp"

	mf, err := os.Create(tmpMeta)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	meta := denseMeta{
		Dims:    s.dims,
		IDMap:   s.idMap,
		NextKey: s.nextKey,
		Docs:    s.docs,
	}
	if err := gob.NewEncoder(mf).Encode(meta); err != nil {
		_ = mf.Close()
		_ = os.Remove(tmpMeta)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := mf.Close(); err != nil {
		_ = os.Remove(tmpMeta)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpMeta, metaPath)
}

func (s *shard) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sparse.Close()
}
