package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/telemetry"
)

func newReranker(t *testing.T, c *fakeCompleter, mode RerankMode) *LLMReranker {
	t.Helper()
	r, err := NewLLMReranker(c, LLMRerankerConfig{Mode: mode, Concurrency: 2}, nil)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

// =============================================================================
// Passthrough
// =============================================================================

func TestPassthroughReranker(t *testing.T) {
	cands := candidates(5)

	out := PassthroughReranker{}.Rerank(context.Background(), "q", cands, 3)

	require.Len(t, out, 3)
	for i, r := range out {
		assert.Equal(t, cands[i].Content, r.Content)
		assert.Equal(t, cands[i].Score, r.OriginalScore)
		assert.Equal(t, r.OriginalScore, r.RerankScore)
	}
}

// =============================================================================
// Batch scoring
// =============================================================================

func TestLLMReranker_Batch_ReordersByScore(t *testing.T) {
	// Given: the model prefers doc 3, then doc 1, and omits doc 2
	c := replyWith("```json\n[{\"doc\": 1, \"score\": 6}, {\"doc\": 3, \"score\": 9}]\n```")
	r := newReranker(t, c, RerankBatch)

	// When
	out := r.Rerank(context.Background(), "day 1 in jaipur", candidates(3), 2)

	// Then: doc 3 (0.9), doc 1 (0.6); doc 2 got the neutral 0.5 and was cut
	require.Len(t, out, 2)
	assert.Equal(t, "doc 3", out[0].Content)
	assert.InDelta(t, 0.9, out[0].RerankScore, 1e-12)
	assert.Equal(t, "doc 1", out[1].Content)
	assert.InDelta(t, 0.6, out[1].RerankScore, 1e-12)
	assert.Equal(t, int64(1), c.calls.Load(), "one request for the whole batch")
}

func TestLLMReranker_Batch_Prompt(t *testing.T) {
	c := replyWith(`[]`)
	r := newReranker(t, c, RerankBatch)
	long := Candidate{Content: strings.Repeat("x", 800), Score: 1}

	r.Rerank(context.Background(), "hotels", []Candidate{long, {Content: "short"}}, 5)

	require.Len(t, c.prompts, 1)
	p := c.prompts[0]
	assert.Contains(t, p, "Query: hotels")
	assert.Contains(t, p, "\n[Doc 1]: "+strings.Repeat("x", 500)+"\n")
	assert.NotContains(t, p, strings.Repeat("x", 501))
	assert.Contains(t, p, "[Doc 2]: short")
}

func TestLLMReranker_Batch_MissingEntriesGetNeutral(t *testing.T) {
	c := replyWith(`[]`)
	r := newReranker(t, c, RerankBatch)

	out := r.Rerank(context.Background(), "q", candidates(3), 3)

	require.Len(t, out, 3)
	for i, res := range out {
		assert.Equal(t, 0.5, res.RerankScore)
		assert.Equal(t, candidates(3)[i].Content, res.Content, "stable order on ties")
	}
}

func TestLLMReranker_Batch_PositionAlias(t *testing.T) {
	c := replyWith(`[{"position": 2, "score": "10"}, {"position": 1, "score": 1}]`)
	r := newReranker(t, c, RerankBatch)

	out := r.Rerank(context.Background(), "q", candidates(2), 2)

	assert.Equal(t, "doc 2", out[0].Content)
	assert.Equal(t, 1.0, out[0].RerankScore)
	assert.InDelta(t, 0.1, out[1].RerankScore, 1e-12)
}

func TestLLMReranker_Batch_FallbackIsPassthrough(t *testing.T) {
	tests := []struct {
		name string
		c    *fakeCompleter
	}{
		{"service unreachable", failing()},
		{"unparsable reply", replyWith("I think doc 2 is best")},
		{"entry without position", replyWith(`[{"score": 3}]`)},
		{"entry without score", replyWith(`[{"doc": 1}]`)},
		{"fractional position", replyWith(`[{"doc": 1.9, "score": 9}]`)},
		{"repeated position", replyWith(`[{"doc": 2, "score": 9}, {"doc": 2, "score": 1}]`)},
		{"position not a number", replyWith(`[{"doc": "NaN", "score": 9}]`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			cands := candidates(4)
			r := newReranker(t, tt.c, RerankBatch)

			// When
			out := r.Rerank(context.Background(), "q", cands, 2)

			// Then: candidates[:2] with rerank == original
			require.Len(t, out, 2)
			for i := range out {
				assert.Equal(t, cands[i].Content, out[i].Content)
				assert.Equal(t, cands[i].Score, out[i].RerankScore)
				assert.Equal(t, out[i].OriginalScore, out[i].RerankScore)
			}
		})
	}
}

func TestLLMReranker_EmptyCandidates(t *testing.T) {
	c := replyWith(`[]`)
	r := newReranker(t, c, RerankBatch)

	out := r.Rerank(context.Background(), "q", nil, 5)

	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Equal(t, int64(0), c.calls.Load())
}

// =============================================================================
// Per-item scoring
// =============================================================================

func TestLLMReranker_PerItem_ScoresAndExplains(t *testing.T) {
	// Given: scores depend on the candidate in the prompt
	c := &fakeCompleter{reply: func(p string) (string, error) {
		switch {
		case strings.Contains(p, "doc 1"):
			return `{"score": 2, "reason": "unrelated"}`, nil
		case strings.Contains(p, "doc 2"):
			return `{"score": 8, "reason": "mentions the hotel"}`, nil
		default:
			return `{"reason": "no score given"}`, nil
		}
	}}
	r := newReranker(t, c, RerankPerItem)

	// When
	out := r.Rerank(context.Background(), "hotel", candidates(3), 3)

	// Then
	require.Len(t, out, 3)
	assert.Equal(t, "doc 2", out[0].Content)
	assert.InDelta(t, 0.8, out[0].RerankScore, 1e-12)
	assert.Equal(t, "mentions the hotel", out[0].Explanation)
	assert.Equal(t, "doc 3", out[1].Content)
	assert.Equal(t, 0.5, out[1].RerankScore, "missing score is neutral")
	assert.Equal(t, "doc 1", out[2].Content)
	assert.Equal(t, int64(3), c.calls.Load())
}

func TestLLMReranker_PerItem_FailureScoresHalf(t *testing.T) {
	r := newReranker(t, failing(), RerankPerItem)

	out := r.Rerank(context.Background(), "q", candidates(2), 5)

	require.Len(t, out, 2)
	for _, res := range out {
		assert.Equal(t, 0.5, res.RerankScore)
		assert.Equal(t, "Error scoring", res.Explanation)
	}
}

func TestLLMReranker_PerItem_TruncatesContent(t *testing.T) {
	c := replyWith(`{"score": 5}`)
	r := newReranker(t, c, RerankPerItem)
	cand := Candidate{Content: strings.Repeat("é", 1600)}

	r.Rerank(context.Background(), "q", []Candidate{cand}, 1)

	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], strings.Repeat("é", 1500))
	assert.NotContains(t, c.prompts[0], strings.Repeat("é", 1501))
}

func TestLLMReranker_ScoresClampedToUnit(t *testing.T) {
	r := newReranker(t, replyWith(`{"score": 14}`), RerankPerItem)
	out := r.Rerank(context.Background(), "q", candidates(1), 1)
	assert.Equal(t, 1.0, out[0].RerankScore)
}

func TestLLMReranker_NaNScoresAreNeutral(t *testing.T) {
	// Given: replies whose score parses to NaN
	batch := newReranker(t, replyWith(`[{"doc": 1, "score": "NaN"}, {"doc": 2, "score": 8}]`), RerankBatch)
	item := newReranker(t, replyWith(`{"score": "NaN", "reason": "?"}`), RerankPerItem)

	// When
	batchOut := batch.Rerank(context.Background(), "q", candidates(3), 3)
	itemOut := item.Rerank(context.Background(), "q", candidates(1), 1)

	// Then: NaN is treated as the neutral score and ordering stays total
	require.Len(t, batchOut, 3)
	assert.Equal(t, "doc 2", batchOut[0].Content)
	assert.InDelta(t, 0.8, batchOut[0].RerankScore, 1e-12)
	assert.Equal(t, "doc 1", batchOut[1].Content)
	assert.Equal(t, 0.5, batchOut[1].RerankScore)
	assert.Equal(t, "doc 3", batchOut[2].Content)
	assert.Equal(t, 0.5, batchOut[2].RerankScore)
	require.Len(t, itemOut, 1)
	assert.Equal(t, 0.5, itemOut[0].RerankScore)
}

func TestParseBatchScores_Positions(t *testing.T) {
	scores, err := parseBatchScores(`[{"doc": 2.0, "score": 7}, {"position": "1", "score": 3}]`)
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{1: 3, 2: 7}, scores)

	_, err = parseBatchScores(`[{"doc": 1.5, "score": 7}]`)
	assert.ErrorIs(t, err, errBatchPosition)

	_, err = parseBatchScores(`[{"doc": 1, "score": 7}, {"position": 1, "score": 2}]`)
	assert.ErrorIs(t, err, errBatchDuplicate)
}

// =============================================================================
// Circuit breaker and metrics
// =============================================================================

func TestLLMReranker_CircuitOpensAfterFailures(t *testing.T) {
	// Given: a breaker that opens after two failures
	c := failing()
	m := telemetry.NewMetrics()
	r, err := NewLLMReranker(c, LLMRerankerConfig{MaxFailures: 2, ResetTimeout: time.Hour}, m)
	require.NoError(t, err)
	defer r.Close()

	// When: four batch reranks
	for i := 0; i < 4; i++ {
		out := r.Rerank(context.Background(), "q", candidates(2), 2)
		require.Len(t, out, 2)
	}

	// Then: only two reached the service, all four degraded
	assert.Equal(t, int64(2), c.calls.Load())
	assert.Equal(t, apperrors.StateOpen, r.Breaker().State())
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Degradations.WithLabelValues(telemetry.ComponentReranker)))
}

func TestLLMReranker_ParseFailureDoesNotTripCircuit(t *testing.T) {
	c := replyWith("not json")
	r, err := NewLLMReranker(c, LLMRerankerConfig{MaxFailures: 1}, nil)
	require.NoError(t, err)
	defer r.Close()

	r.Rerank(context.Background(), "q", candidates(1), 1)
	r.Rerank(context.Background(), "q", candidates(1), 1)

	assert.Equal(t, int64(2), c.calls.Load())
	assert.Equal(t, apperrors.StateClosed, r.Breaker().State())
}

func TestNewLLMReranker_Validation(t *testing.T) {
	_, err := NewLLMReranker(nil, LLMRerankerConfig{}, nil)
	assert.True(t, errors.Is(err, ErrNilDependency))

	_, err = NewLLMReranker(replyWith(""), LLMRerankerConfig{Mode: "listwise"}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	r, err := NewLLMReranker(replyWith(""), LLMRerankerConfig{}, nil)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, RerankBatch, r.Mode())
}

func TestTruncateChars(t *testing.T) {
	assert.Equal(t, "abc", truncateChars("abc", 5))
	assert.Equal(t, "ab", truncateChars("abc", 2))
	assert.Equal(t, "日本", truncateChars("日本語", 2))
	assert.Equal(t, "", truncateChars("abc", 0))
}
