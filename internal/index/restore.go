package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/travelrag/internal/chunk"
	"github.com/Aman-CERP/travelrag/internal/config"
	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/search"
	"github.com/Aman-CERP/travelrag/internal/store"
)

// RestoreResult describes a snapshot loaded into an engine.
type RestoreResult struct {
	Documents int
	Semantic  bool
	State     map[string]string
	Check     CheckResult
}

// Restore loads the snapshot at cfg.SnapshotPath() into engine without
// calling the embedder. Stored vectors from another model or of another
// width are dropped and the engine serves lexical results only. A missing
// snapshot is ErrCodeSnapshotMissing.
func Restore(ctx context.Context, cfg *config.Config, engine *search.Engine, chunker *chunk.Chunker) (*RestoreResult, error) {
	path := cfg.SnapshotPath()
	if _, err := os.Stat(path); err != nil {
		return nil, snapshotMissing(path, err)
	}

	snapStore, err := store.OpenSnapshotStore(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCorruptIndex, err)
	}
	defer func() { _ = snapStore.Close() }()

	snap, err := snapStore.Load(ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		return nil, snapshotMissing(path, err)
	}
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCorruptIndex, "failed to load snapshot", err).
			WithDetail("path", path).
			WithSuggestion("run 'travelrag index' to rebuild")
	}

	check := CheckSnapshot(snap, engine.Embedder(), chunker)
	for _, inc := range check.Inconsistencies {
		slog.Warn("snapshot_inconsistent",
			slog.String("type", inc.Type.String()),
			slog.String("stored", inc.Stored),
			slog.String("current", inc.Current))
	}

	vectors := snap.Embeddings
	if !check.SemanticUsable() {
		vectors = nil
	}
	if err := engine.BuildWithEmbeddings(ctx, snap.Documents, vectors); err != nil {
		return nil, err
	}

	res := &RestoreResult{
		Documents: len(snap.Documents),
		Semantic:  vectors != nil,
		State:     snap.State,
		Check:     check,
	}
	slog.Info("snapshot_restored",
		slog.String("path", path),
		slog.Int("documents", res.Documents),
		slog.Bool("semantic", res.Semantic),
		slog.Bool("stale", check.Stale()))
	return res, nil
}

func snapshotMissing(path string, cause error) error {
	return apperrors.New(apperrors.ErrCodeSnapshotMissing, fmt.Sprintf("no index at %s", path), cause).
		WithSuggestion("run 'travelrag index' first")
}

// LoadOrBuild restores the saved snapshot, or runs a full index when none
// exists yet.
func LoadOrBuild(ctx context.Context, runner *Runner) (bool, error) {
	_, err := Restore(ctx, runner.config, runner.engine, runner.chunker)
	if err == nil {
		return false, nil
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeSnapshotMissing) {
		return false, err
	}
	slog.Info("snapshot_missing_building", slog.String("corpus_dir", runner.config.Paths.CorpusDir))
	if _, err := runner.Run(ctx); err != nil {
		return false, err
	}
	return true, nil
}
