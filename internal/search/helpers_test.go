package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Aman-CERP/travelrag/internal/store"
)

// --- Test Helpers ---

func doc(id, content string) *store.Document {
	return &store.Document{
		ID:       id,
		Content:  content,
		Metadata: map[string]any{"source": "test.txt", "section": id},
		Source:   "test.txt",
	}
}

func results(ids []string, scores []float64, tag SourceTag) []SearchResult {
	out := make([]SearchResult, len(ids))
	for i, id := range ids {
		score := 1.0
		if i < len(scores) {
			score = scores[i]
		}
		out[i] = SearchResult{Document: doc(id, "content "+id), Score: score, Source: tag}
	}
	return out
}

func ids(rs []SearchResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Document.ID
	}
	return out
}

func candidates(n int) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{
			Content:  fmt.Sprintf("doc %d", i+1),
			Metadata: map[string]any{"n": i + 1},
			Score:    1.0 - float64(i)*0.1,
		}
	}
	return out
}

// fakeCompleter answers prompts with a function and counts calls.
type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	calls   atomic.Int64
	reply   func(prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.reply(prompt)
}

func replyWith(s string) *fakeCompleter {
	return &fakeCompleter{reply: func(string) (string, error) { return s, nil }}
}

func failing() *fakeCompleter {
	return &fakeCompleter{reply: func(string) (string, error) { return "", errors.New("connection refused") }}
}

// fakeEmbedder maps known texts to fixed vectors and fails on demand.
type fakeEmbedder struct {
	vectors map[string][]float32
	dims    int
	fail    atomic.Bool
	batches atomic.Int64
}

func (f *fakeEmbedder) vec(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return make([]float32, f.dims)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fail.Load() {
		return nil, errors.New("embedding service down")
	}
	return f.vec(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batches.Add(1)
	if f.fail.Load() {
		return nil, errors.New("embedding service down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vec(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                    { return f.dims }
func (f *fakeEmbedder) ModelName() string                  { return "fake" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return !f.fail.Load() }
func (f *fakeEmbedder) Close() error                       { return nil }
