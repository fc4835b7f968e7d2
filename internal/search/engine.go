package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/travelrag/internal/embed"
	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/store"
	"github.com/Aman-CERP/travelrag/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// DefaultCandidateMultiplier is how many candidates each retrieval path
// contributes to hybrid fusion, as a multiple of top_k.
const DefaultCandidateMultiplier = 2

// EngineConfig holds engine-wide defaults.
type EngineConfig struct {
	// Fusion is the default fusion mode (default: rrf).
	Fusion FusionMode

	// RRFConstant is k in 1/(k+rank) (default: 60).
	RRFConstant int

	// Weights are the weighted-fusion defaults (default: 0.5/0.5).
	Weights Weights

	// CandidateMultiplier scales top_k for each retrieval path (default: 2).
	CandidateMultiplier int

	// LexicalBackend is native or bleve.
	LexicalBackend string

	// VectorBackend is flat or hnsw.
	VectorBackend string

	BM25 store.BM25Config
}

// DefaultEngineConfig returns RRF with k=60 over native BM25 and flat vectors.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Fusion:              FusionRRF,
		RRFConstant:         DefaultRRFConstant,
		Weights:             DefaultWeights(),
		CandidateMultiplier: DefaultCandidateMultiplier,
		LexicalBackend:      store.LexicalBackendNative,
		VectorBackend:       store.VectorBackendFlat,
		BM25:                store.DefaultBM25Config(),
	}
}

// snapshot is one immutable build of the indexes. vector is nil when
// semantic retrieval was unavailable at build time.
type snapshot struct {
	docs       []*store.Document
	vectors    [][]float32
	lexical    store.LexicalIndex
	vector     store.VectorIndex
	builtAt    time.Time
	generation int64
}

// Engine answers queries over the current snapshot. Builds happen off to the
// side and are published with an atomic swap, so a query never sees a
// half-built index and in-flight queries finish on the snapshot they started
// with.
type Engine struct {
	embedder embed.Embedder
	reranker Reranker
	config   EngineConfig
	metrics  *telemetry.Metrics
	queryLog *telemetry.QueryLog

	current    atomic.Pointer[snapshot]
	generation atomic.Int64
	buildMu    sync.Mutex
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithReranker sets the reranker used by Retrieve (default: passthrough).
func WithReranker(r Reranker) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.reranker = r
		}
	}
}

// WithMetrics records queries, builds and degradations.
func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithQueryLog keeps recent query patterns in memory.
func WithQueryLog(l *telemetry.QueryLog) EngineOption {
	return func(e *Engine) {
		e.queryLog = l
	}
}

// NewEngine creates an engine with no index. Queries return nothing until
// Build or BuildWithEmbeddings succeeds.
func NewEngine(embedder embed.Embedder, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	defaults := DefaultEngineConfig()
	if config.Fusion == "" {
		config.Fusion = defaults.Fusion
	}
	if config.Fusion != FusionRRF && config.Fusion != FusionWeighted {
		return nil, apperrors.ValidationError(fmt.Sprintf("unknown fusion mode %q", config.Fusion), nil)
	}
	if config.RRFConstant <= 0 {
		config.RRFConstant = defaults.RRFConstant
	}
	if config.Weights == (Weights{}) {
		config.Weights = defaults.Weights
	}
	if config.CandidateMultiplier <= 0 {
		config.CandidateMultiplier = defaults.CandidateMultiplier
	}
	if config.BM25 == (store.BM25Config{}) {
		config.BM25 = defaults.BM25
	}

	e := &Engine{
		embedder: embedder,
		reranker: PassthroughReranker{},
		config:   config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// =============================================================================
// Building
// =============================================================================

// Build indexes docs, embedding every document in one batch. An embedding
// failure is not an error: the snapshot is published without semantic
// retrieval. An empty document set is rejected.
func (e *Engine) Build(ctx context.Context, docs []*store.Document) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	return e.build(ctx, docs, nil, true)
}

// BuildWithEmbeddings indexes docs using precomputed vectors parallel to
// docs, without calling the embedder. Nil vectors disable semantic retrieval.
func (e *Engine) BuildWithEmbeddings(ctx context.Context, docs []*store.Document, vectors [][]float32) error {
	if vectors != nil && len(vectors) != len(docs) {
		return apperrors.New(apperrors.ErrCodeCorruptIndex,
			fmt.Sprintf("have %d embeddings for %d documents", len(vectors), len(docs)), nil).
			WithSuggestion("run 'travelrag index' to rebuild")
	}
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	return e.build(ctx, docs, vectors, false)
}

// Add appends docs to the current set and rebuilds everything.
func (e *Engine) Add(ctx context.Context, docs ...*store.Document) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	var all []*store.Document
	if snap := e.current.Load(); snap != nil {
		all = make([]*store.Document, 0, len(snap.docs)+len(docs))
		all = append(all, snap.docs...)
	}
	all = append(all, docs...)
	return e.build(ctx, all, nil, true)
}

func (e *Engine) build(ctx context.Context, docs []*store.Document, vectors [][]float32, embedDocs bool) error {
	if len(docs) == 0 {
		return apperrors.New(apperrors.ErrCodeEmptyCorpus, "cannot build an index over zero documents", nil).
			WithSuggestion("check the corpus directory and file pattern")
	}
	start := time.Now()

	if embedDocs {
		vectors = e.embedDocuments(ctx, docs)
	}

	lexical, err := store.NewLexicalIndex(ctx, e.config.LexicalBackend, docs, e.config.BM25)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIndexFailed, fmt.Errorf("build lexical index: %w", err))
	}

	var vector store.VectorIndex
	if len(vectors) > 0 {
		vector, err = store.NewVectorIndex(e.config.VectorBackend, vectors)
		if err != nil {
			_ = lexical.Close()
			return apperrors.Wrap(apperrors.ErrCodeIndexFailed, fmt.Errorf("build vector index: %w", err))
		}
	}

	next := &snapshot{
		docs:       docs,
		vectors:    vectors,
		lexical:    lexical,
		vector:     vector,
		builtAt:    time.Now(),
		generation: e.generation.Add(1),
	}
	prev := e.current.Swap(next)
	e.retire(prev)

	e.metrics.IndexBuilt(len(docs))
	slog.Info("index_built",
		slog.Int("documents", len(docs)),
		slog.Bool("semantic", vector != nil),
		slog.Int64("generation", next.generation),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// embedDocuments returns one vector per document, or nil when the embedder
// is unavailable or fails.
func (e *Engine) embedDocuments(ctx context.Context, docs []*store.Document) [][]float32 {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(docs) {
		err = fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}
	if err != nil {
		e.metrics.Degraded(telemetry.ComponentEmbedder)
		slog.Warn("semantic_index_unavailable",
			slog.String("model", e.embedder.ModelName()),
			slog.String("error", err.Error()))
		return nil
	}
	return vectors
}

// retire closes a replaced snapshot's lexical index once queries that may
// still hold it have had time to finish. Native BM25 and vector indexes hold
// no resources, so only the bleve backend is affected.
func (e *Engine) retire(prev *snapshot) {
	if prev == nil {
		return
	}
	if _, ok := prev.lexical.(*store.BleveIndex); !ok {
		return
	}
	time.AfterFunc(time.Minute, func() { _ = prev.lexical.Close() })
}

// =============================================================================
// Querying
// =============================================================================

// SearchLexical returns up to k lexical matches. Documents with no query
// term in common score 0 and are never returned.
func (e *Engine) SearchLexical(ctx context.Context, query string, k int) ([]SearchResult, error) {
	snap := e.current.Load()
	if snap == nil {
		return []SearchResult{}, nil
	}
	return e.lexical(ctx, snap, query, k)
}

func (e *Engine) lexical(ctx context.Context, snap *snapshot, query string, k int) ([]SearchResult, error) {
	hits, err := snap.lexical.Search(ctx, query, k)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeSearchFailed, fmt.Errorf("lexical search: %w", err))
	}
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult{Document: snap.docs[h.Pos], Score: h.Score, Source: SourceLexical}
	}
	return out, nil
}

// SearchSemantic returns the k nearest documents by cosine similarity. When
// semantic retrieval is unavailable it returns an empty list, not an error.
func (e *Engine) SearchSemantic(ctx context.Context, query string, k int) ([]SearchResult, error) {
	snap := e.current.Load()
	if snap == nil {
		return []SearchResult{}, nil
	}
	return e.semantic(ctx, snap, query, k)
}

func (e *Engine) semantic(ctx context.Context, snap *snapshot, query string, k int) ([]SearchResult, error) {
	empty := []SearchResult{}
	if snap.vector == nil {
		return empty, nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.metrics.Degraded(telemetry.ComponentEmbedder)
		slog.Warn("semantic_search_degraded", slog.String("error", err.Error()))
		return empty, nil
	}
	hits, err := snap.vector.Search(ctx, vec, k)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.metrics.Degraded(telemetry.ComponentEmbedder)
		slog.Warn("semantic_search_degraded", slog.String("error", err.Error()))
		return empty, nil
	}
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult{Document: snap.docs[h.Pos], Score: h.Score, Source: SourceSemantic}
	}
	return out, nil
}

// SearchHybrid runs both retrieval paths concurrently, each asked for
// top_k * CandidateMultiplier candidates, and fuses them.
func (e *Engine) SearchHybrid(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	snap := e.current.Load()
	if snap == nil {
		return []SearchResult{}, nil
	}
	opts = e.applyDefaults(opts)
	return e.hybrid(ctx, snap, query, opts)
}

func (e *Engine) hybrid(ctx context.Context, snap *snapshot, query string, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.TopK * e.config.CandidateMultiplier

	var lexical, semantic []SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexical, err = e.lexical(gctx, snap, query, limit)
		return err
	})
	g.Go(func() error {
		var err error
		semantic, err = e.semantic(gctx, snap, query, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	weights := e.config.Weights
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	return NewFuser(opts.Fusion, e.config.RRFConstant, weights).Fuse(lexical, semantic, opts.TopK), nil
}

// Search validates the query, runs the retrieval path named by opts.Mode and
// records metrics.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.ErrCodeQueryEmpty, "query is empty", nil)
	}
	opts = e.applyDefaults(opts)
	requestID := uuid.NewString()
	start := time.Now()

	snap := e.current.Load()
	results := []SearchResult{}
	var err error
	if snap != nil {
		switch opts.Mode {
		case ModeLexical:
			results, err = e.lexical(ctx, snap, query, opts.TopK)
		case ModeSemantic:
			results, err = e.semantic(ctx, snap, query, opts.TopK)
		default:
			results, err = e.hybrid(ctx, snap, query, opts)
		}
	}
	if err != nil {
		slog.Error("search_failed",
			slog.String("request_id", requestID),
			slog.String("mode", string(opts.Mode)),
			slog.String("error", err.Error()))
		return nil, err
	}

	elapsed := time.Since(start)
	e.metrics.ObserveQuery(string(opts.Mode), len(results), elapsed)
	e.queryLog.Record(query, string(opts.Mode), len(results))
	slog.Debug("search_complete",
		slog.String("request_id", requestID),
		slog.String("mode", string(opts.Mode)),
		slog.Int("results", len(results)),
		slog.Duration("duration", elapsed))
	return results, nil
}

// Retrieve searches and then reranks the results, keeping opts.TopK.
func (e *Engine) Retrieve(ctx context.Context, query string, opts SearchOptions) ([]RankedResult, error) {
	opts = e.applyDefaults(opts)
	results, err := e.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return e.reranker.Rerank(ctx, query, ToCandidates(results), opts.TopK), nil
}

func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}
	if opts.Fusion == "" {
		opts.Fusion = e.config.Fusion
	}
	return opts
}

// =============================================================================
// Introspection
// =============================================================================

// Stats describes the current snapshot.
func (e *Engine) Stats() Stats {
	snap := e.current.Load()
	if snap == nil {
		return Stats{}
	}
	s := Stats{
		NumDocuments:    len(snap.docs),
		BM25Initialized: true,
		BuiltAt:         snap.builtAt,
		Generation:      snap.generation,
	}
	if snap.vector != nil {
		s.SemanticAvailable = true
		s.EmbeddingDim = snap.vector.Dimensions()
	}
	return s
}

// Documents returns the indexed documents in index order.
func (e *Engine) Documents() []*store.Document {
	if snap := e.current.Load(); snap != nil {
		return snap.docs
	}
	return nil
}

// Embeddings returns the vectors parallel to Documents, or nil when the
// snapshot has no semantic index.
func (e *Engine) Embeddings() [][]float32 {
	if snap := e.current.Load(); snap != nil {
		return snap.vectors
	}
	return nil
}

// Embedder returns the engine's embedder.
func (e *Engine) Embedder() embed.Embedder { return e.embedder }

// Close releases the current snapshot.
func (e *Engine) Close() error {
	snap := e.current.Swap(nil)
	if snap == nil {
		return nil
	}
	var errs []error
	if err := snap.lexical.Close(); err != nil {
		errs = append(errs, err)
	}
	if snap.vector != nil {
		if err := snap.vector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
