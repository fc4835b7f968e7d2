package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/travelrag/internal/chunk"
	"github.com/Aman-CERP/travelrag/internal/config"
	"github.com/Aman-CERP/travelrag/internal/embed"
	"github.com/Aman-CERP/travelrag/internal/index"
	"github.com/Aman-CERP/travelrag/internal/llm"
	"github.com/Aman-CERP/travelrag/internal/mcp"
	"github.com/Aman-CERP/travelrag/internal/search"
	"github.com/Aman-CERP/travelrag/internal/telemetry"
)

const (
	queryLogTerms       = 1000
	queryLogZeroResults = 100
)

// app wires the configured services into one engine for a command run.
type app struct {
	cfg      *config.Config
	embedder embed.Embedder
	engine   *search.Engine
	chunker  *chunk.Chunker
	metrics  *telemetry.Metrics
	queryLog *telemetry.QueryLog

	llmReranker *search.LLMReranker
	rerankInfo  mcp.RerankerInfo
}

// newApp builds the embedder, the reranker (when rerank is set and the
// config enables it) and the engine. Missing scoring credentials fall back
// to passthrough ranking with a warning.
func newApp(cfg *config.Config, rerank bool) (*app, error) {
	embedder, err := embed.New(cfg.EmbedConfig())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		embedder: embedder,
		metrics:  telemetry.NewMetrics(),
		queryLog: telemetry.NewQueryLog(queryLogTerms, queryLogZeroResults),
	}

	var reranker search.Reranker = search.PassthroughReranker{}
	if rerank && cfg.Reranker.IsEnabled() {
		r, err := newReranker(cfg, a.metrics)
		switch {
		case err == nil:
			a.llmReranker = r
			reranker = r
			a.rerankInfo = mcp.RerankerInfo{Enabled: true, Provider: cfg.Reranker.Provider, Mode: string(r.Mode())}
		case errors.Is(err, llm.ErrNoCredentials):
			slog.Warn("reranker_unavailable", slog.String("reason", err.Error()))
		default:
			_ = embedder.Close()
			return nil, err
		}
	}

	engine, err := search.NewEngine(embedder, cfg.EngineConfig(),
		search.WithReranker(reranker),
		search.WithMetrics(a.metrics),
		search.WithQueryLog(a.queryLog))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine

	chunker, err := index.NewChunker(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.chunker = chunker
	return a, nil
}

func newReranker(cfg *config.Config, metrics *telemetry.Metrics) (*search.LLMReranker, error) {
	completer, err := llm.New(cfg.LLMConfig())
	if err != nil {
		return nil, err
	}
	r, err := search.NewLLMReranker(completer, cfg.RerankerConfig(), metrics)
	if err != nil {
		return nil, fmt.Errorf("create reranker: %w", err)
	}
	return r, nil
}

// runner returns an indexing runner over the app's engine.
func (a *app) runner(reporter index.Reporter) (*index.Runner, error) {
	return index.NewRunner(index.Dependencies{
		Config:   a.cfg,
		Engine:   a.engine,
		Chunker:  a.chunker,
		Reporter: reporter,
	})
}

// restore loads the saved snapshot into the engine.
func (a *app) restore(ctx context.Context) (*index.RestoreResult, error) {
	return index.Restore(ctx, a.cfg, a.engine, a.chunker)
}

// Close releases the engine, the rerank pool and the embedder.
func (a *app) Close() {
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			slog.Warn("engine_close_failed", slog.String("error", err.Error()))
		}
	}
	if a.llmReranker != nil {
		a.llmReranker.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
}
