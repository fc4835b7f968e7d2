package store

import (
	"context"
	"math"
	"sort"

	"github.com/Aman-CERP/travelrag/internal/tokenize"
)

// BM25Index is an in-memory Okapi BM25 index over a fixed document set.
// It is immutable once built and safe for concurrent Search.
type BM25Index struct {
	config   BM25Config
	termFreq []map[string]int
	docLen   []int
	avgLen   float64
	idf      map[string]float64
}

// NewBM25Index tokenizes docs with tokenize.Lexical and precomputes IDF.
//
// IDF is ln((N - df + 0.5) / (df + 0.5)). Terms present in more than half of
// the documents get a negative IDF, which is floored to Epsilon times the
// mean IDF over the vocabulary.
func NewBM25Index(docs []*Document, cfg BM25Config) *BM25Index {
	idx := &BM25Index{
		config:   cfg,
		termFreq: make([]map[string]int, len(docs)),
		docLen:   make([]int, len(docs)),
		idf:      make(map[string]float64),
	}

	docFreq := make(map[string]int)
	total := 0
	for i, doc := range docs {
		terms := tokenize.Lexical(doc.Content)
		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		for t := range tf {
			docFreq[t]++
		}
		idx.termFreq[i] = tf
		idx.docLen[i] = len(terms)
		total += len(terms)
	}
	if len(docs) > 0 {
		idx.avgLen = float64(total) / float64(len(docs))
	}

	// Sum in sorted term order so the floor is bit-identical across rebuilds.
	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	var idfSum float64
	var negative []string
	for _, term := range terms {
		df := docFreq[term]
		v := math.Log(n-float64(df)+0.5) - math.Log(float64(df)+0.5)
		idx.idf[term] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}
	if len(docFreq) > 0 {
		floor := cfg.Epsilon * idfSum / float64(len(docFreq))
		for _, term := range negative {
			idx.idf[term] = floor
		}
	}
	return idx
}

// Score returns the BM25 score of every document for query. Repeated query
// terms contribute once per occurrence.
func (b *BM25Index) Score(query string) []float64 {
	scores := make([]float64, len(b.termFreq))
	avg := b.avgLen
	if avg == 0 {
		avg = 1
	}
	k1, bb := b.config.K1, b.config.B
	for _, term := range tokenize.Lexical(query) {
		idf, ok := b.idf[term]
		if !ok {
			continue
		}
		for i, tf := range b.termFreq {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			norm := k1 * (1 - bb + bb*float64(b.docLen[i])/avg)
			scores[i] += idf * f * (k1 + 1) / (f + norm)
		}
	}
	return scores
}

// Search returns the top k documents with a positive score. Equal scores keep
// corpus order.
func (b *BM25Index) Search(ctx context.Context, query string, k int) ([]LexicalHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := []LexicalHit{}
	if k <= 0 {
		return hits, nil
	}
	for pos, s := range b.Score(query) {
		if s > 0 {
			hits = append(hits, LexicalHit{Pos: pos, Score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// IDF returns the (floored) inverse document frequency of term and whether
// it occurs in the corpus.
func (b *BM25Index) IDF(term string) (float64, bool) {
	v, ok := b.idf[term]
	return v, ok
}

func (b *BM25Index) Len() int { return len(b.termFreq) }

func (b *BM25Index) Close() error { return nil }

var _ LexicalIndex = (*BM25Index)(nil)
