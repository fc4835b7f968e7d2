package search

import (
	"sort"

	"github.com/Aman-CERP/travelrag/internal/store"
)

// DefaultRRFConstant is the RRF smoothing parameter.
const DefaultRRFConstant = 60

// Fuser merges a lexical and a semantic ranked list into at most topK
// hybrid results. Both inputs are ordered best first.
type Fuser interface {
	Fuse(lexical, semantic []SearchResult, topK int) []SearchResult
}

// RRFFusion combines lists by Reciprocal Rank Fusion:
//
//	score(d) = Σ 1 / (k + rank_i(d))
//
// over every list containing d, with 1-based ranks. Only ranks matter, so the
// incomparable BM25 and cosine scales never meet.
type RRFFusion struct {
	K int
}

// NewRRFFusion returns RRF with k; k <= 0 means DefaultRRFConstant.
func NewRRFFusion(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

func (f *RRFFusion) Fuse(lexical, semantic []SearchResult, topK int) []SearchResult {
	acc := newAccumulator(len(lexical) + len(semantic))
	for rank, r := range lexical {
		acc.add(r.Document, 1.0/float64(f.K+rank+1))
	}
	for rank, r := range semantic {
		acc.add(r.Document, 1.0/float64(f.K+rank+1))
	}
	return acc.results(topK)
}

// WeightedFusion combines lists by score:
//
//	score(d) = w_lex * lex(d) / max(lex) + w_sem * sem(d)
//
// Lexical scores are normalized by the batch maximum (0 when it is 0).
// Semantic scores are used as they are.
type WeightedFusion struct {
	Weights Weights
}

// NewWeightedFusion returns weighted fusion with w. Weights are not checked.
func NewWeightedFusion(w Weights) *WeightedFusion {
	return &WeightedFusion{Weights: w}
}

func (f *WeightedFusion) Fuse(lexical, semantic []SearchResult, topK int) []SearchResult {
	acc := newAccumulator(len(lexical) + len(semantic))
	if len(lexical) > 0 {
		maxScore := lexical[0].Score
		for _, r := range lexical[1:] {
			if r.Score > maxScore {
				maxScore = r.Score
			}
		}
		for _, r := range lexical {
			norm := 0.0
			if maxScore > 0 {
				norm = r.Score / maxScore
			}
			acc.add(r.Document, f.Weights.Lexical*norm)
		}
	}
	for _, r := range semantic {
		acc.add(r.Document, f.Weights.Semantic*r.Score)
	}
	return acc.results(topK)
}

// accumulator sums scores per document ID in first-seen order. Duplicate
// IDs collide: their scores add up and the last document seen is kept.
type accumulator struct {
	index   map[string]int
	entries []SearchResult
}

func newAccumulator(capacity int) *accumulator {
	return &accumulator{
		index:   make(map[string]int, capacity),
		entries: make([]SearchResult, 0, capacity),
	}
}

func (a *accumulator) add(doc *store.Document, score float64) {
	if i, ok := a.index[doc.ID]; ok {
		a.entries[i].Score += score
		a.entries[i].Document = doc
		return
	}
	a.index[doc.ID] = len(a.entries)
	a.entries = append(a.entries, SearchResult{Document: doc, Score: score, Source: SourceHybrid})
}

// results sorts descending, ties in first-seen order, and truncates to topK
// (no limit when topK <= 0).
func (a *accumulator) results(topK int) []SearchResult {
	out := a.entries
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// NewFuser returns the fuser for mode. Unknown modes use RRF.
func NewFuser(mode FusionMode, rrfK int, w Weights) Fuser {
	if mode == FusionWeighted {
		return NewWeightedFusion(w)
	}
	return NewRRFFusion(rrfK)
}
