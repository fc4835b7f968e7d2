package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/index"
	"github.com/Aman-CERP/travelrag/internal/mcp"
	"github.com/Aman-CERP/travelrag/internal/store"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	transport   string
	addr        string
	metricsAddr string
	watch       bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index to agents over MCP",
		Long: `Start an MCP server exposing the search_documents and index_status tools.

The saved index is loaded, or built when none exists. With the stdio
transport nothing but protocol messages is written to stdout; logs go to
~/.travelrag/logs/travelrag.log.`,
		Example: `  # Claude Desktop / agent integration
  travelrag serve

  # Streamable HTTP with Prometheus metrics, rebuilding on corpus changes
  travelrag serve --transport http --addr :8080 --metrics-addr :9090 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", mcp.TransportStdio, "Transport: stdio, http")
	cmd.Flags().StringVar(&opts.addr, "addr", "localhost:8080", "Listen address for the http transport")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus /metrics on this address (default from config)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Rebuild the index when corpus files change")

	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts serveOptions) error {
	switch opts.transport {
	case mcp.TransportStdio, mcp.TransportHTTP:
	default:
		return apperrors.ValidationError(fmt.Sprintf("unknown transport %q", opts.transport), nil).
			WithSuggestion("use one of: stdio, http")
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if opts.metricsAddr == "" {
		opts.metricsAddr = cfg.Server.MetricsAddr
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := a.runner(nil)
	if err != nil {
		return err
	}
	built, err := index.LoadOrBuild(ctx, runner)
	if err != nil {
		return err
	}
	slog.Info("serve_index_ready",
		slog.Bool("built", built),
		slog.Int("documents", a.engine.Stats().NumDocuments))

	srv, err := mcp.NewServer(a.engine, a.embedder, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()
	srv.SetQueryLog(a.queryLog)
	srv.SetRerankerInfo(a.rerankInfo)
	srv.SetSnapshotState(readSnapshotState(ctx, cfg.SnapshotPath()))

	// The session ending (stdin closed) stops the metrics server and watcher.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Serve(gctx, opts.transport, opts.addr)
	})
	if opts.metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, opts.metricsAddr, a.metrics.Handler())
		})
	}
	if opts.watch {
		g.Go(func() error {
			return watchCorpus(gctx, cfg, runner, func(*index.Result) {
				srv.SetSnapshotState(readSnapshotState(gctx, cfg.SnapshotPath()))
			})
		})
	}
	return g.Wait()
}

// serveMetrics exposes handler at /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("metrics_listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

var snapshotStateKeys = []string{
	store.StateKeyEmbeddingModel,
	store.StateKeyEmbeddingDim,
	store.StateKeyTokenizer,
	store.StateKeyChunkSize,
	store.StateKeyChunkOverlap,
	store.StateKeyBuiltAt,
	store.StateKeyCorpusDir,
}

// readSnapshotState returns the build settings saved with the snapshot, or
// nil when they cannot be read.
func readSnapshotState(ctx context.Context, path string) map[string]string {
	s, err := store.OpenSnapshotStore(path)
	if err != nil {
		slog.Warn("snapshot_state_unreadable", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	defer func() { _ = s.Close() }()

	state := make(map[string]string, len(snapshotStateKeys))
	for _, key := range snapshotStateKeys {
		v, ok, err := s.GetState(ctx, key)
		if err != nil {
			slog.Warn("snapshot_state_unreadable", slog.String("key", key), slog.String("error", err.Error()))
			return nil
		}
		if ok {
			state[key] = v
		}
	}
	return state
}
