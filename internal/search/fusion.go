// Package search provides rank fusion for hybrid retrieval.
// Dense and sparse result lists are combined with Reciprocal Rank
// Fusion (RRF).
package search

import (
	"sort"

	"github.com/spyrelabs/ragstore/internal/engine"
)

// DefaultRRFConstant is the standard RRF damping parameter.
// k=60 is empirically validated across domains.
const DefaultRRFConstant = 60

// fused accumulates a document's state across both lists.
type fused struct {
	doc       engine.Document
	score     float64
	firstSeen int
}

// FuseRRF combines two ranked lists into one using Reciprocal Rank
// Fusion with constant k, returning at most topK results.
//
// Each item contributes 1/(rank+1+k) with 0-indexed ranks; a document
// appearing in both lists sums both contributions, rewarding agreement
// between dense and sparse retrieval. The most recently seen record per
// chunk ID is retained. Sorting is by fused score descending with ties
// broken by first-seen order, so the fusion is fully deterministic.
func FuseRRF(listA, listB []engine.Hit, topK, k int) []engine.Hit {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	if len(listA) == 0 && len(listB) == 0 {
		return []engine.Hit{}
	}

	scores := make(map[int64]*fused, len(listA)+len(listB))
	order := 0

	accumulate := func(list []engine.Hit) {
		for rank, hit := range list {
			id := hit.Doc.ChunkID
			f, ok := scores[id]
			if !ok {
				f = &fused{firstSeen: order}
				order++
				scores[id] = f
			}
			f.doc = hit.Doc // most recent sighting wins
			f.score += 1.0 / float64(rank+1+k)
		}
	}
	accumulate(listA)
	accumulate(listB)

	results := make([]*fused, 0, len(scores))
	for _, f := range scores {
		results = append(results, f)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].firstSeen < results[j].firstSeen
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	hits := make([]engine.Hit, len(results))
	for i, f := range results {
		hits[i] = engine.Hit{Doc: f.doc, Score: f.score}
	}
	return hits
}
