// Package cmd provides the CLI commands for travelrag.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/travelrag/internal/config"
	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/logging"
	"github.com/Aman-CERP/travelrag/internal/profiling"
	"github.com/Aman-CERP/travelrag/pkg/version"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	// dir is the project directory holding .travelrag.yaml.
	dir     string
	debug   bool
	profile profiling.Options

	loggingCleanup func()
	profiler       *profiling.Session
}

// NewRootCmd creates the root command for the travelrag CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "travelrag",
		Short: "Hybrid search over travel documents",
		Long: `travelrag indexes a directory of travel documents (itineraries, bookings,
hotel and flight details) and answers queries with hybrid search: BM25
keyword retrieval and embedding similarity, fused and optionally reranked
by a relevance-scoring model.

Run 'travelrag index' in a project directory, then 'travelrag search'.
'travelrag serve' exposes the index to agents over MCP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("travelrag version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "Project directory containing .travelrag.yaml")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging (also written to stderr)")
	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Heap, "profile-mem", "", "Write heap profile to file on exit")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := startLogging(opts); err != nil {
			return err
		}
		return startProfiling(opts)
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		err := stopProfiling(opts)
		stopLogging(opts)
		return err
	}

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging sends JSON logs to the rotating log file. The level comes from
// the project config when it loads; --debug forces debug and mirrors to
// stderr. Stdout is never used, so the stdio MCP transport stays clean.
func startLogging(opts *rootOptions) error {
	level := "info"
	if cfg, err := config.Load(opts.dir); err == nil {
		level = cfg.Server.LogLevel
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.WriteToStderr = opts.debug
	if opts.debug {
		logCfg.Level = "debug"
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	opts.loggingCleanup = cleanup
	slog.Debug("logging_started",
		slog.String("log_file", logCfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

func startProfiling(opts *rootOptions) error {
	if !opts.profile.Enabled() {
		return nil
	}
	s, err := profiling.Start(opts.profile)
	if err != nil {
		return err
	}
	opts.profiler = s
	slog.Debug("profiling_started",
		slog.String("cpu", opts.profile.CPU),
		slog.String("heap", opts.profile.Heap),
		slog.String("trace", opts.profile.Trace))
	return nil
}

func stopProfiling(opts *rootOptions) error {
	if opts.profiler == nil {
		return nil
	}
	err := opts.profiler.Stop()
	opts.profiler = nil
	return err
}

func stopLogging(opts *rootOptions) {
	if opts.loggingCleanup != nil {
		opts.loggingCleanup()
		opts.loggingCleanup = nil
	}
}

// Execute runs the root command and prints failures with their hint.
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprint(root.ErrOrStderr(), apperrors.FormatForCLI(err))
		slog.Error("command_failed", apperrors.LogAttrs(err)...)
	}
	return err
}

// loadConfig loads the layered configuration for the project directory.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	return config.Load(opts.dir)
}
