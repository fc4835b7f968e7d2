package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"

	"github.com/Aman-CERP/travelrag/internal/tokenize"
)

const (
	termWeight    = 0.7
	trigramWeight = 0.3
)

// StaticEmbedder hashes terms and character trigrams into a fixed-width
// vector. It needs no network or model, is fully deterministic, and gives
// texts that share words or spellings a high cosine similarity. It backs
// offline use and tests.
type StaticEmbedder struct {
	dims   int
	closed atomic.Bool
}

// NewStaticEmbedder returns a static embedder of the given width
// (StaticDimensions when dims <= 0).
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = StaticDimensions
	}
	return &StaticEmbedder{dims: dims}
}

func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.closed.Load() {
		return nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// vector returns the normalized hash vector, or all zeros for blank text.
func (e *StaticEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	terms := tokenize.Lexical(text)
	if len(terms) == 0 {
		return v
	}
	for _, t := range terms {
		v[e.bucket(t)] += termWeight
	}
	joined := " " + strings.Join(terms, " ") + " "
	runes := []rune(joined)
	for i := 0; i+3 <= len(runes); i++ {
		v[e.bucket(string(runes[i:i+3]))] += trigramWeight
	}
	return normalizeVector(v)
}

func (e *StaticEmbedder) bucket(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(e.dims))
}

func (e *StaticEmbedder) Dimensions() int { return e.dims }

func (e *StaticEmbedder) ModelName() string { return "static-hash" }

func (e *StaticEmbedder) Available(ctx context.Context) bool { return !e.closed.Load() }

func (e *StaticEmbedder) Close() error {
	e.closed.Store(true)
	return nil
}

var _ Embedder = (*StaticEmbedder)(nil)
