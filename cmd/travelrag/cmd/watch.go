package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/travelrag/internal/config"
	"github.com/Aman-CERP/travelrag/internal/index"
	"github.com/Aman-CERP/travelrag/internal/output"
	"github.com/Aman-CERP/travelrag/internal/watcher"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [corpus-dir]",
		Short: "Rebuild the index whenever corpus files change",
		Long: `Load (or build) the index, then watch the corpus directory. Changes are
debounced (watch.debounce, default 500ms) and each batch triggers a full
rebuild. A failed rebuild keeps the previous index in service.

Press Ctrl+C to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpusDir := ""
			if len(args) == 1 {
				corpusDir = args[0]
			}
			return runWatch(cmd.Context(), cmd, root, corpusDir)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, root *rootOptions, corpusDir string) error {
	cfg, err := loadConfig(root)
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
	runner, err := a.runner(nil)
	if err != nil {
		return err
	}

	built, err := index.LoadOrBuild(ctx, runner)
	if err != nil {
		return err
	}
	if built {
		out.Success("Built new index")
	} else {
		out.Success("Loaded saved index")
	}
	out.Stats(a.engine.Stats(), nil)
	out.Statusf("", "Watching %s for %s (Ctrl+C to stop)", cfg.Paths.CorpusDir, cfg.Paths.Pattern)

	return watchCorpus(ctx, cfg, runner, func(res *index.Result) {
		out.Newline()
		out.IndexSummary(res)
	})
}

// watchCorpus rebuilds through runner on every debounced batch of corpus
// changes until ctx is done. onRebuild, when set, sees each successful run.
func watchCorpus(ctx context.Context, cfg *config.Config, runner *index.Runner, onRebuild func(*index.Result)) error {
	w, err := watcher.New(watcher.Options{
		Debounce:    cfg.WatchDebounce(),
		Pattern:     cfg.Paths.Pattern,
		ConfigNames: []string{config.ProjectConfigName, config.ProjectConfigAltName},
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	if err := w.Start(ctx, cfg.Paths.CorpusDir); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				slog.Warn("watch_error", slog.String("error", err.Error()))
			}
		}
	}()

	watcher.Rebuild(ctx, w.Events(), func(ctx context.Context, batch []watcher.FileEvent) error {
		if onlyConfigChanges(batch) {
			slog.Warn("config_changed", slog.String("hint", "restart to apply configuration changes"))
			return nil
		}
		for _, ev := range batch {
			slog.Debug("corpus_changed", slog.String("path", ev.Path), slog.String("op", ev.Operation.String()))
		}
		res, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		if onRebuild != nil {
			onRebuild(res)
		}
		return nil
	})
	return nil
}

func onlyConfigChanges(batch []watcher.FileEvent) bool {
	for _, ev := range batch {
		if ev.Operation != watcher.OpConfigChange {
			return false
		}
	}
	return len(batch) > 0
}
