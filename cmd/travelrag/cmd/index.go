package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/travelrag/internal/index"
	"github.com/Aman-CERP/travelrag/internal/output"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "index [corpus-dir]",
		Short: "Index a directory of travel documents",
		Long: `Chunk every corpus file, build the lexical and semantic indexes and save
the snapshot to <data_dir>/index.db.

The corpus directory defaults to paths.corpus_dir from the configuration.
Files that are not valid UTF-8 are skipped with a warning.`,
		Example: `  travelrag index
  travelrag index ./trips --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpusDir := ""
			if len(args) == 1 {
				corpusDir = args[0]
			}
			return runIndex(cmd.Context(), cmd, opts, corpusDir, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")

	return cmd
}

// indexReport is the JSON form of index.Result.
type indexReport struct {
	Files        int           `json:"files"`
	Chunks       int           `json:"chunks"`
	Semantic     bool          `json:"semantic"`
	EmbeddingDim int           `json:"embedding_dim"`
	SnapshotPath string        `json:"snapshot_path"`
	DurationMS   int64         `json:"duration_ms"`
	Skipped      []skippedFile `json:"skipped"`
}

type skippedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func newIndexReport(res *index.Result) indexReport {
	r := indexReport{
		Files:        res.Files,
		Chunks:       res.Chunks,
		Semantic:     res.Semantic,
		EmbeddingDim: res.EmbeddingDim,
		SnapshotPath: res.SnapshotPath,
		DurationMS:   res.Duration.Milliseconds(),
		Skipped:      make([]skippedFile, 0, len(res.FileErrors)),
	}
	for _, fe := range res.FileErrors {
		r.Skipped = append(r.Skipped, skippedFile{Path: fe.Path, Error: fe.Err.Error()})
	}
	return r
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts *rootOptions, corpusDir string, jsonOutput bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if corpusDir != "" {
		abs, err := filepath.Abs(corpusDir)
		if err != nil {
			return err
		}
		cfg.Paths.CorpusDir = abs
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	out := output.New(cmd.OutOrStdout())
	var reporter index.Reporter
	if !jsonOutput {
		reporter = out.Reporter()
	}
	runner, err := a.runner(reporter)
	if err != nil {
		return err
	}

	slog.Info("index_started", slog.String("corpus_dir", cfg.Paths.CorpusDir))
	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return out.JSON(newIndexReport(res))
	}
	out.IndexSummary(res)
	return nil
}
