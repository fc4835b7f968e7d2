// Package embed turns text into vectors for semantic retrieval.
package embed

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the texts sent per embedding request.
	DefaultBatchSize = 64

	// MaxBatchSize caps a single request.
	MaxBatchSize = 2048

	// DefaultTimeout bounds one embedding request.
	DefaultTimeout = 30 * time.Second

	// StaticDimensions is the static embedder's default width.
	StaticDimensions = 256
)

// ErrUnavailable is returned by embedders that cannot serve requests, for
// example when no API key is configured.
var ErrUnavailable = errors.New("embedding service unavailable")

// Embedder generates vector embeddings for text. Implementations make at most
// one attempt per request; callers decide how to degrade on error.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts, returning vectors in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector width, or 0 if not yet known.
	Dimensions() int

	ModelName() string

	// Available reports whether requests can be attempted at all.
	Available(ctx context.Context) bool

	Close() error
}

// normalizeVector returns v scaled to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}

// batches splits texts into consecutive groups of at most size.
func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		out = append(out, texts[start:min(start+size, len(texts))])
	}
	return out
}
