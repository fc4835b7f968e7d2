// Package index turns a corpus directory into a searchable snapshot and
// restores snapshots from disk.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Aman-CERP/travelrag/internal/chunk"
	"github.com/Aman-CERP/travelrag/internal/config"
	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/search"
	"github.com/Aman-CERP/travelrag/internal/store"
	"github.com/Aman-CERP/travelrag/internal/tokenize"
)

// Stage names one step of an indexing run.
type Stage string

const (
	StageLoad    Stage = "load"
	StageChunk   Stage = "chunk"
	StageBuild   Stage = "build"
	StagePersist Stage = "persist"
)

// Reporter receives progress from a run. Implementations must be safe to
// call from the goroutine running Run.
type Reporter interface {
	StageDone(stage Stage, elapsed time.Duration, detail string)
}

type nopReporter struct{}

func (nopReporter) StageDone(Stage, time.Duration, string) {}

// Result summarises an indexing run.
type Result struct {
	// Files counts the files that were chunked into the index. Files listed
	// in FileErrors are not included.
	Files        int
	Chunks       int
	FileErrors   []chunk.FileError
	Semantic     bool
	EmbeddingDim int
	SnapshotPath string
	Duration     time.Duration
	Stages       map[Stage]time.Duration
}

// Dependencies are injected into a Runner.
type Dependencies struct {
	// Config is the loaded configuration (required).
	Config *config.Config

	// Engine receives the built documents (required).
	Engine *search.Engine

	// Chunker defaults to NewChunker(Config).
	Chunker *chunk.Chunker

	// Reporter defaults to a no-op.
	Reporter Reporter

	// Persist writes the snapshot to Config.SnapshotPath() (default: true).
	Persist *bool
}

// Runner executes the indexing pipeline: load, chunk, build, persist.
type Runner struct {
	config   *config.Config
	engine   *search.Engine
	chunker  *chunk.Chunker
	reporter Reporter
	persist  bool
}

// NewRunner validates deps.
func NewRunner(deps Dependencies) (*Runner, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("%w: config is required", search.ErrNilDependency)
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("%w: engine is required", search.ErrNilDependency)
	}
	chunker := deps.Chunker
	if chunker == nil {
		var err error
		if chunker, err = NewChunker(deps.Config); err != nil {
			return nil, err
		}
	}
	reporter := deps.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	persist := deps.Persist == nil || *deps.Persist
	return &Runner{
		config:   deps.Config,
		engine:   deps.Engine,
		chunker:  chunker,
		reporter: reporter,
		persist:  persist,
	}, nil
}

// NewChunker builds the chunker described by cfg. When the tiktoken encoding
// cannot be loaded (it is fetched on first use) chunks are sized in runes
// instead, and the snapshot records "rune" as its tokenizer.
func NewChunker(cfg *config.Config) (*chunk.Chunker, error) {
	tok, err := tokenize.NewLengthTokenizer(cfg.Chunking.Tokenizer)
	if err != nil {
		slog.Warn("tokenizer_fallback",
			slog.String("tokenizer", cfg.Chunking.Tokenizer),
			slog.String("fallback", tokenize.RuneEncoding),
			slog.String("error", err.Error()))
		tok = tokenize.RuneTokenizer{}
	}
	splitter, err := chunk.NewSplitter(cfg.Chunking.Splitter)
	if err != nil {
		return nil, apperrors.ConfigError(err.Error(), err)
	}
	return chunk.NewChunker(tok, cfg.ChunkOptions(), splitter)
}

// Chunker returns the runner's chunker.
func (r *Runner) Chunker() *chunk.Chunker { return r.chunker }

// Run indexes the configured corpus directory. Unreadable or undecodable
// files are skipped and reported in Result.FileErrors; a corpus that yields
// no chunks is an error and leaves the engine and snapshot untouched.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Stages: make(map[Stage]time.Duration)}
	dir := r.config.Paths.CorpusDir

	// Stage 1: load
	t := time.Now()
	files, loadErrs, err := chunk.LoadDir(ctx, dir, r.config.Paths.Pattern)
	if err != nil {
		return nil, err
	}
	res.FileErrors = append(res.FileErrors, loadErrs...)
	r.stageDone(res, StageLoad, t, fmt.Sprintf("%d files", len(files)))

	// Stage 2: chunk
	t = time.Now()
	docs, chunkErrs := r.chunker.ChunkAll(ctx, files)
	res.FileErrors = append(res.FileErrors, chunkErrs...)
	res.Files = len(files) - len(chunkErrs)
	res.Chunks = len(docs)
	r.stageDone(res, StageChunk, t, fmt.Sprintf("%d chunks", len(docs)))

	if len(docs) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeEmptyCorpus,
			fmt.Sprintf("no documents matching %q in %s", r.config.Paths.Pattern, dir), nil).
			WithSuggestion("check paths.corpus_dir and paths.pattern")
	}

	// Stage 3: build
	t = time.Now()
	if err := r.engine.Build(ctx, docs); err != nil {
		return nil, err
	}
	stats := r.engine.Stats()
	res.Semantic = stats.SemanticAvailable
	res.EmbeddingDim = stats.EmbeddingDim
	r.stageDone(res, StageBuild, t, fmt.Sprintf("semantic=%t", res.Semantic))

	// Stage 4: persist
	if r.persist {
		t = time.Now()
		if err := r.save(ctx); err != nil {
			return nil, err
		}
		res.SnapshotPath = r.config.SnapshotPath()
		r.stageDone(res, StagePersist, t, res.SnapshotPath)
	}

	res.Duration = time.Since(start)
	slog.Info("index_complete",
		slog.String("corpus_dir", dir),
		slog.Int("files", res.Files),
		slog.Int("chunks", res.Chunks),
		slog.Int("file_errors", len(res.FileErrors)),
		slog.Bool("semantic", res.Semantic),
		slog.Int64("duration_load_ms", res.Stages[StageLoad].Milliseconds()),
		slog.Int64("duration_chunk_ms", res.Stages[StageChunk].Milliseconds()),
		slog.Int64("duration_build_ms", res.Stages[StageBuild].Milliseconds()),
		slog.Int64("duration_persist_ms", res.Stages[StagePersist].Milliseconds()),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) stageDone(res *Result, stage Stage, started time.Time, detail string) {
	d := time.Since(started)
	res.Stages[stage] = d
	r.reporter.StageDone(stage, d, detail)
}

// save writes the engine's current documents and vectors under an exclusive
// lock on the data directory.
func (r *Runner) save(ctx context.Context) error {
	dataDir := r.config.Paths.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return apperrors.New(apperrors.ErrCodeFilePermission,
			fmt.Sprintf("create data directory %s", dataDir), err)
	}

	lock := store.NewDirLock(dataDir)
	ok, err := lock.TryLock()
	if err != nil {
		return apperrors.New(apperrors.ErrCodeFilePermission, "lock data directory", err)
	}
	if !ok {
		return apperrors.New(apperrors.ErrCodeLockHeld,
			fmt.Sprintf("another process is writing %s", dataDir), nil).
			WithDetail("lock", lock.Path()).
			WithSuggestion("wait for the other 'travelrag index' to finish")
	}
	defer func() { _ = lock.Unlock() }()

	snapStore, err := store.OpenSnapshotStore(r.config.SnapshotPath())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIndexFailed, err)
	}
	defer func() { _ = snapStore.Close() }()

	snap := &store.Snapshot{
		Documents:  r.engine.Documents(),
		Embeddings: r.engine.Embeddings(),
		State:      r.snapshotState(),
	}
	if err := snapStore.Save(ctx, snap); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIndexFailed, fmt.Errorf("save snapshot: %w", err))
	}
	return nil
}

func (r *Runner) snapshotState() map[string]string {
	stats := r.engine.Stats()
	state := map[string]string{
		store.StateKeyTokenizer:    r.chunker.TokenizerName(),
		store.StateKeyChunkSize:    strconv.Itoa(r.chunker.Options().Size),
		store.StateKeyChunkOverlap: strconv.Itoa(r.chunker.Options().Overlap),
		store.StateKeyBuiltAt:      stats.BuiltAt.UTC().Format(time.RFC3339),
		store.StateKeyCorpusDir:    absPath(r.config.Paths.CorpusDir),
	}
	if stats.SemanticAvailable {
		state[store.StateKeyEmbeddingModel] = r.engine.Embedder().ModelName()
		state[store.StateKeyEmbeddingDim] = strconv.Itoa(stats.EmbeddingDim)
	}
	return state
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
