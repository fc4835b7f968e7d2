package store

import (
	"context"
	"math"
	"sort"
)

// FlatIndex scores the query against every stored vector with exact cosine
// similarity. For corpora of a few thousand chunks this is fast enough and
// has no recall loss.
type FlatIndex struct {
	vectors [][]float32
	norms   []float64
	dims    int
}

// NewFlatIndex stores vectors as given. All vectors must share one length.
func NewFlatIndex(vectors [][]float32) (*FlatIndex, error) {
	idx := &FlatIndex{
		vectors: vectors,
		norms:   make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		if i == 0 {
			idx.dims = len(v)
		} else if len(v) != idx.dims {
			return nil, ErrDimensionMismatch{Expected: idx.dims, Got: len(v)}
		}
		idx.norms[i] = norm(v)
	}
	return idx, nil
}

// Search returns the k most similar vectors, best first, ties in insertion order.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := []VectorHit{}
	if k <= 0 || len(f.vectors) == 0 {
		return hits, nil
	}
	if len(query) != f.dims {
		return nil, ErrDimensionMismatch{Expected: f.dims, Got: len(query)}
	}

	qn := norm(query)
	hits = make([]VectorHit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = VectorHit{Pos: i, Score: cosineWithNorms(query, v, qn, f.norms[i])}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *FlatIndex) Len() int { return len(f.vectors) }

func (f *FlatIndex) Dimensions() int { return f.dims }

func (f *FlatIndex) Close() error { return nil }

var _ VectorIndex = (*FlatIndex)(nil)

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either norm is zero.
func CosineSimilarity(a, b []float32) float64 {
	return cosineWithNorms(a, b, norm(a), norm(b))
}

func cosineWithNorms(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
