package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/llm"
	"github.com/Aman-CERP/travelrag/internal/telemetry"
)

// Reranker reorders candidates by estimated relevance to query and keeps the
// best topK (all when topK <= 0). It never fails: every service or parsing
// problem is absorbed into a fallback ranking.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int) []RankedResult
}

// PassthroughReranker keeps the incoming order and scores.
type PassthroughReranker struct{}

var _ Reranker = PassthroughReranker{}

func (PassthroughReranker) Rerank(_ context.Context, _ string, candidates []Candidate, topK int) []RankedResult {
	return passthrough(candidates, topK)
}

// passthrough returns candidates[:topK] with RerankScore = OriginalScore.
func passthrough(candidates []Candidate, topK int) []RankedResult {
	n := len(candidates)
	if topK > 0 && topK < n {
		n = topK
	}
	out := make([]RankedResult, n)
	for i := 0; i < n; i++ {
		c := candidates[i]
		out[i] = RankedResult{
			Content:       c.Content,
			Metadata:      c.Metadata,
			OriginalScore: c.Score,
			RerankScore:   c.Score,
		}
	}
	return out
}

// RerankMode selects per-item or batch scoring.
type RerankMode string

const (
	// RerankBatch scores all candidates in one request.
	RerankBatch RerankMode = "batch"

	// RerankPerItem scores each candidate in its own request and keeps the
	// model's explanation.
	RerankPerItem RerankMode = "per_item"
)

const (
	// neutralScore is used for a candidate the model did not score (0-10 scale).
	neutralScore = 5.0

	// errorScore and errorExplanation mark a per-item scoring failure.
	errorScore       = 0.5
	errorExplanation = "Error scoring"

	// DefaultRerankConcurrency bounds in-flight per-item requests.
	DefaultRerankConcurrency = 4
)

// LLMRerankerConfig configures an LLMReranker.
type LLMRerankerConfig struct {
	Mode RerankMode

	// Concurrency is the per-item worker pool size (default: 4).
	Concurrency int

	// MaxFailures consecutive service failures open the circuit (default: 5).
	MaxFailures int

	// ResetTimeout is how long the circuit stays open (default: 30s).
	ResetTimeout time.Duration
}

// LLMReranker scores candidates with a completion model on a 0-10 scale and
// divides by 10.
type LLMReranker struct {
	completer llm.Completer
	mode      RerankMode
	pool      *ants.Pool
	breaker   *apperrors.CircuitBreaker
	metrics   *telemetry.Metrics
}

var _ Reranker = (*LLMReranker)(nil)

// NewLLMReranker builds the reranker and its worker pool. Close releases the pool.
func NewLLMReranker(completer llm.Completer, cfg LLMRerankerConfig, metrics *telemetry.Metrics) (*LLMReranker, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: completer is required", ErrNilDependency)
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = RerankBatch
	case RerankBatch, RerankPerItem:
	default:
		return nil, apperrors.ValidationError(fmt.Sprintf("unknown rerank mode %q", cfg.Mode), nil)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultRerankConcurrency
	}

	pool, err := ants.NewPool(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("create rerank pool: %w", err)
	}

	var opts []apperrors.CircuitBreakerOption
	if cfg.MaxFailures > 0 {
		opts = append(opts, apperrors.WithMaxFailures(cfg.MaxFailures))
	}
	if cfg.ResetTimeout > 0 {
		opts = append(opts, apperrors.WithResetTimeout(cfg.ResetTimeout))
	}

	return &LLMReranker{
		completer: completer,
		mode:      cfg.Mode,
		pool:      pool,
		breaker:   apperrors.NewCircuitBreaker("reranker", opts...),
		metrics:   metrics,
	}, nil
}

// Mode returns the scoring mode.
func (r *LLMReranker) Mode() RerankMode { return r.mode }

// Breaker exposes the circuit breaker state for status reporting.
func (r *LLMReranker) Breaker() *apperrors.CircuitBreaker { return r.breaker }

// Close releases the worker pool.
func (r *LLMReranker) Close() {
	r.pool.Release()
}

func (r *LLMReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) []RankedResult {
	if len(candidates) == 0 {
		return []RankedResult{}
	}
	if r.mode == RerankPerItem {
		return r.rerankPerItem(ctx, query, candidates, topK)
	}
	return r.rerankBatch(ctx, query, candidates, topK)
}

// complete calls the model through the circuit breaker.
func (r *LLMReranker) complete(ctx context.Context, prompt string, maxTokens int) apperrors.Result[string] {
	return apperrors.Guard(r.breaker, func() (string, error) {
		return r.completer.Complete(ctx, prompt, maxTokens)
	})
}

// =============================================================================
// Per-item scoring
// =============================================================================

type itemScore struct {
	score       float64
	explanation string
}

func (r *LLMReranker) rerankPerItem(ctx context.Context, query string, candidates []Candidate, topK int) []RankedResult {
	out := make([]RankedResult, len(candidates))
	var wg sync.WaitGroup
	for i := range candidates {
		task := func() {
			defer wg.Done()
			s := r.scoreItem(ctx, query, candidates[i].Content)
			out[i] = RankedResult{
				Content:       candidates[i].Content,
				Metadata:      candidates[i].Metadata,
				OriginalScore: candidates[i].Score,
				RerankScore:   s.score,
				Explanation:   s.explanation,
			}
		}
		wg.Add(1)
		if err := r.pool.Submit(task); err != nil {
			// Pool released or overloaded: score inline.
			task()
		}
	}
	wg.Wait()
	return sortAndTruncate(out, topK)
}

func (r *LLMReranker) scoreItem(ctx context.Context, query, content string) itemScore {
	fallback := itemScore{score: errorScore, explanation: errorExplanation}

	reply, err := r.complete(ctx, itemPrompt(query, content), itemMaxTokens).Get()
	if err != nil {
		r.degraded("item_request_failed", err)
		return fallback
	}
	s, err := parseItemScore(reply)
	if err != nil {
		r.degraded("item_response_invalid", err)
		return fallback
	}
	return s
}

type itemReply struct {
	Score  *flexNumber `json:"score"`
	Reason string      `json:"reason"`
}

func parseItemScore(reply string) (itemScore, error) {
	var parsed itemReply
	if err := json.Unmarshal([]byte(llm.ExtractJSON(reply)), &parsed); err != nil {
		return itemScore{}, fmt.Errorf("decode item score: %w", err)
	}
	score := neutralScore
	if parsed.Score != nil {
		score = float64(*parsed.Score)
	}
	return itemScore{score: clampUnit(score / 10), explanation: parsed.Reason}, nil
}

// =============================================================================
// Batch scoring
// =============================================================================

func (r *LLMReranker) rerankBatch(ctx context.Context, query string, candidates []Candidate, topK int) []RankedResult {
	reply, err := r.complete(ctx, batchPrompt(query, candidates), batchMaxTokens).Get()
	if err != nil {
		r.degraded("batch_request_failed", err)
		return passthrough(candidates, topK)
	}
	scores, err := parseBatchScores(reply)
	if err != nil {
		r.degraded("batch_response_invalid", err)
		return passthrough(candidates, topK)
	}

	out := make([]RankedResult, len(candidates))
	for i, c := range candidates {
		s, ok := scores[i+1]
		if !ok {
			s = neutralScore
		}
		out[i] = RankedResult{
			Content:       c.Content,
			Metadata:      c.Metadata,
			OriginalScore: c.Score,
			RerankScore:   clampUnit(s / 10),
		}
	}
	return sortAndTruncate(out, topK)
}

type batchEntry struct {
	Doc      *flexNumber `json:"doc"`
	Position *flexNumber `json:"position"`
	Score    *flexNumber `json:"score"`
}

var (
	errBatchEntry     = errors.New("batch entry missing position or score")
	errBatchPosition  = errors.New("batch entry position is not an integer")
	errBatchDuplicate = errors.New("batch entry position repeated")
)

// parseBatchScores maps 1-based positions to 0-10 scores. An entry without a
// position or a score, a fractional position or a repeated position
// invalidates the whole reply.
func parseBatchScores(reply string) (map[int]float64, error) {
	var entries []batchEntry
	if err := json.Unmarshal([]byte(llm.ExtractJSON(reply)), &entries); err != nil {
		return nil, fmt.Errorf("decode batch scores: %w", err)
	}
	scores := make(map[int]float64, len(entries))
	for _, e := range entries {
		pos := e.Doc
		if pos == nil {
			pos = e.Position
		}
		if pos == nil || e.Score == nil {
			return nil, errBatchEntry
		}
		p := float64(*pos)
		if p != math.Trunc(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: %v", errBatchPosition, p)
		}
		if _, dup := scores[int(p)]; dup {
			return nil, fmt.Errorf("%w: %d", errBatchDuplicate, int(p))
		}
		scores[int(p)] = float64(*e.Score)
	}
	return scores, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (r *LLMReranker) degraded(event string, err error) {
	slog.Warn("rerank_degraded",
		slog.String("event", event),
		slog.String("circuit", r.breaker.State().String()),
		slog.String("error", err.Error()))
	r.metrics.Degraded(telemetry.ComponentReranker)
}

// sortAndTruncate orders by RerankScore descending, ties in input order.
func sortAndTruncate(results []RankedResult, topK int) []RankedResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RerankScore > results[j].RerankScore
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// clampUnit bounds v to [0, 1]. NaN becomes the neutral score.
func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return neutralScore / 10
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// flexNumber decodes a JSON number or a numeric string such as "7".
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = flexNumber(v)
	return nil
}
