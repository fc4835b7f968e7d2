package store

import (
	"context"
	"math"
	"sort"

	"github.com/coder/hnsw"
)

// HNSWConfig tunes the approximate graph.
type HNSWConfig struct {
	// M is max connections per layer (default: 16)
	M int
	// EfSearch is the query-time candidate list size (default: 64)
	EfSearch int
}

// DefaultHNSWConfig returns M=16, EfSearch=64.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{M: 16, EfSearch: 64}
}

// HNSWIndex is a VectorIndex on coder/hnsw. Graph keys are document
// positions. Returned scores are exact cosine similarities: the graph only
// nominates candidates, and a corpus no larger than EfSearch is scanned
// exhaustively.
type HNSWIndex struct {
	graph    *hnsw.Graph[uint64]
	vectors  [][]float32
	dims     int
	efSearch int
}

// NewHNSWIndex inserts every vector, normalized, into a cosine graph.
func NewHNSWIndex(vectors [][]float32, cfg HNSWConfig) (*HNSWIndex, error) {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 64
	}

	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Ml = 0.25

	idx := &HNSWIndex{graph: g, vectors: vectors, efSearch: cfg.EfSearch}
	for i, v := range vectors {
		if i == 0 {
			idx.dims = len(v)
		} else if len(v) != idx.dims {
			return nil, ErrDimensionMismatch{Expected: idx.dims, Got: len(v)}
		}
		g.Add(hnsw.MakeNode(uint64(i), normalized(v)))
	}
	return idx, nil
}

// Search returns the k most similar vectors. Small graphs are scanned in
// full; larger ones are asked for max(k, EfSearch) candidates, which are
// rescored exactly and cut to k.
func (h *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := []VectorHit{}
	n := h.graph.Len()
	if k <= 0 || n == 0 {
		return hits, nil
	}
	if len(query) != h.dims {
		return nil, ErrDimensionMismatch{Expected: h.dims, Got: len(query)}
	}

	if n <= h.efSearch {
		hits = make([]VectorHit, 0, n)
		for pos, v := range h.vectors {
			hits = append(hits, VectorHit{Pos: pos, Score: CosineSimilarity(query, v)})
		}
	} else {
		for _, node := range h.graph.Search(normalized(query), max(k, h.efSearch)) {
			pos := int(node.Key)
			hits = append(hits, VectorHit{Pos: pos, Score: CosineSimilarity(query, h.vectors[pos])})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Pos < hits[j].Pos
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (h *HNSWIndex) Len() int { return h.graph.Len() }

func (h *HNSWIndex) Dimensions() int { return h.dims }

func (h *HNSWIndex) Close() error { return nil }

var _ VectorIndex = (*HNSWIndex)(nil)

func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	n := float32(math.Sqrt(sum))
	for i := range out {
		out[i] /= n
	}
	return out
}
