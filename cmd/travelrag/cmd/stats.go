package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/travelrag/internal/output"
	"github.com/Aman-CERP/travelrag/internal/search"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Load the saved snapshot and report its size, whether semantic search is
available, and the settings it was built with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, root, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// statsReport is the JSON form of the stats command.
type statsReport struct {
	Stats           search.Stats      `json:"stats"`
	State           map[string]string `json:"state"`
	Inconsistencies []string          `json:"inconsistencies"`
}

func runStats(ctx context.Context, cmd *cobra.Command, root *rootOptions, jsonOutput bool) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	restored, err := a.restore(ctx)
	if err != nil {
		return err
	}

	stats := a.engine.Stats()
	out := output.New(cmd.OutOrStdout())
	if jsonOutput {
		report := statsReport{
			Stats:           stats,
			State:           restored.State,
			Inconsistencies: make([]string, 0, len(restored.Check.Inconsistencies)),
		}
		for _, inc := range restored.Check.Inconsistencies {
			report.Inconsistencies = append(report.Inconsistencies, inc.Type.String())
		}
		return out.JSON(report)
	}

	out.Stats(stats, restored.State)
	for _, inc := range restored.Check.Inconsistencies {
		out.Warningf("%s: snapshot %q, current %q", inc.Type, inc.Stored, inc.Current)
	}
	return nil
}
