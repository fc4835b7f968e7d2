// Package store holds the retrieval indexes over a fixed document set and
// the SQLite snapshot that persists that set with its embeddings.
package store

import (
	"context"
	"fmt"
)

// Document is one retrievable chunk. IDs have the form {source_key}_{chunk_index}
// and are unique by caller contract; nothing here enforces it.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
	Source   string
}

// Section returns the "section" metadata value, or "" when absent.
func (d *Document) Section() string {
	if d == nil || d.Metadata == nil {
		return ""
	}
	s, _ := d.Metadata["section"].(string)
	return s
}

// LexicalHit is a lexical match. Pos is the document's position in the set
// the index was built from.
type LexicalHit struct {
	Pos   int
	Score float64
}

// VectorHit is a semantic match. Score is cosine similarity in [-1, 1].
type VectorHit struct {
	Pos   int
	Score float64
}

// LexicalIndex ranks documents by term overlap with a query. Implementations
// are built once over the full document set and never mutated.
type LexicalIndex interface {
	// Search returns at most k hits with score > 0, best first.
	Search(ctx context.Context, query string, k int) ([]LexicalHit, error)
	Len() int
	Close() error
}

// VectorIndex ranks documents by cosine similarity to a query vector.
type VectorIndex interface {
	// Search returns at most k hits, best first. No similarity cutoff.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)
	Len() int
	Dimensions() int
	Close() error
}

// Lexical backends.
const (
	LexicalBackendNative = "native"
	LexicalBackendBleve  = "bleve"
)

// Vector backends.
const (
	VectorBackendFlat = "flat"
	VectorBackendHNSW = "hnsw"
)

// BM25Config configures Okapi BM25 scoring.
type BM25Config struct {
	// K1 is the term frequency saturation parameter (default: 1.2)
	K1 float64

	// B is the length normalization parameter (default: 0.75)
	B float64

	// Epsilon floors negative IDF values at Epsilon * mean IDF (default: 0.25)
	Epsilon float64
}

// DefaultBM25Config returns k1=1.2, b=0.75, epsilon=0.25.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: 1.2, B: 0.75, Epsilon: 0.25}
}

// ErrDimensionMismatch indicates vectors of different lengths in one index.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'travelrag index' to rebuild)", e.Expected, e.Got)
}

// NewLexicalIndex builds the named lexical backend over docs.
func NewLexicalIndex(ctx context.Context, backend string, docs []*Document, cfg BM25Config) (LexicalIndex, error) {
	switch backend {
	case "", LexicalBackendNative:
		return NewBM25Index(docs, cfg), nil
	case LexicalBackendBleve:
		return NewBleveIndex(ctx, docs)
	default:
		return nil, fmt.Errorf("unknown lexical backend %q", backend)
	}
}

// NewVectorIndex builds the named vector backend over vectors, which are
// parallel to the document set.
func NewVectorIndex(backend string, vectors [][]float32) (VectorIndex, error) {
	switch backend {
	case "", VectorBackendFlat:
		return NewFlatIndex(vectors)
	case VectorBackendHNSW:
		return NewHNSWIndex(vectors, DefaultHNSWConfig())
	default:
		return nil, fmt.Errorf("unknown vector backend %q", backend)
	}
}
