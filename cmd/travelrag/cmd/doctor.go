package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/output"
	"github.com/Aman-CERP/travelrag/internal/preflight"
)

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var verbose, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the project setup and diagnose issues",
		Long: `Run diagnostics for the project directory.

Checks:
  - Corpus directory has files matching paths.pattern
  - Data directory is writable, with 50MB free
  - File descriptor limit
  - Chunking tokenizer loads
  - Embedding service is reachable
  - Scoring service credentials when reranking is enabled
  - Saved index matches the current settings

Only the corpus and data directory checks are fatal. The others are
warnings because search degrades instead of failing.`,
		Example: `  travelrag doctor
  travelrag doctor --verbose
  travelrag doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd, root, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// doctorReport is the JSON form of the doctor command.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func runDoctor(ctx context.Context, cmd *cobra.Command, root *rootOptions, verbose, jsonOutput bool) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(ctx, cfg, a.embedder)
	results = append(results, snapshotCheck(ctx, a))

	if jsonOutput {
		if err := output.New(cmd.OutOrStdout()).JSON(doctorReport{
			Status: checker.SummaryStatus(results),
			Checks: results,
		}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return apperrors.ValidationError("system check failed", nil).
			WithSuggestion("fix the failed checks above")
	}
	return nil
}

// snapshotCheck restores the saved index and reports whether it can serve
// the current settings.
func snapshotCheck(ctx context.Context, a *app) preflight.CheckResult {
	result := preflight.CheckResult{
		Name:    "index",
		Details: a.cfg.SnapshotPath(),
	}

	restored, err := a.restore(ctx)
	switch {
	case apperrors.HasCode(err, apperrors.ErrCodeSnapshotMissing):
		result.Status = preflight.StatusWarn
		result.Message = "not built yet, run 'travelrag index'"
		return result
	case err != nil:
		result.Status = preflight.StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = preflight.StatusPass
	result.Message = fmt.Sprintf("%d chunks", restored.Documents)
	if !restored.Semantic {
		result.Status = preflight.StatusWarn
		result.Message += ", lexical only"
	}
	for _, inc := range restored.Check.Inconsistencies {
		result.Status = preflight.StatusWarn
		result.Message += fmt.Sprintf(", %s (%s -> %s)", inc.Type, inc.Stored, inc.Current)
	}
	return result
}
