package embed

import (
	"context"
	"errors"
	"sync/atomic"
)

// countingEmbedder returns a vector derived from text length and counts calls.
type countingEmbedder struct {
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	batchSizes []int
	fail       bool
}

func (m *countingEmbedder) vec(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (m *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if m.fail {
		return nil, errors.New("boom")
	}
	return m.vec(text), nil
}

func (m *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.fail {
		return nil, errors.New("boom")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vec(t)
	}
	return out, nil
}

func (m *countingEmbedder) Dimensions() int                    { return 2 }
func (m *countingEmbedder) ModelName() string                  { return "counting" }
func (m *countingEmbedder) Available(ctx context.Context) bool { return true }
func (m *countingEmbedder) Close() error                       { return nil }
