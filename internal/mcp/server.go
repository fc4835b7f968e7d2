package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/travelrag/internal/config"
	"github.com/Aman-CERP/travelrag/internal/embed"
	"github.com/Aman-CERP/travelrag/internal/search"
	"github.com/Aman-CERP/travelrag/internal/telemetry"
	"github.com/Aman-CERP/travelrag/pkg/version"
)

// Engine is the retrieval surface the server needs. *search.Engine satisfies it.
type Engine interface {
	Retrieve(ctx context.Context, query string, opts search.SearchOptions) ([]search.RankedResult, error)
	Stats() search.Stats
}

// Server bridges MCP clients with the retrieval engine.
type Server struct {
	mcp      *mcp.Server
	engine   Engine
	embedder embed.Embedder // may be nil; reported as unavailable
	config   *config.Config
	logger   *slog.Logger

	snapshot map[string]string
	reranker RerankerInfo
	queryLog *telemetry.QueryLog

	mu sync.RWMutex
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates the MCP server and registers its tools. A nil cfg uses
// defaults.
func NewServer(engine Engine, embedder embed.Embedder, cfg *config.Config) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine:   engine,
		embedder: embedder,
		config:   cfg,
		logger:   slog.Default(),
		reranker: RerankerInfo{
			Enabled:  cfg.Reranker.IsEnabled(),
			Provider: cfg.Reranker.Provider,
			Mode:     cfg.Reranker.Mode,
		},
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// SetSnapshotState records the state stored with the loaded snapshot so
// index_status can report how it was built.
func (s *Server) SetSnapshotState(state map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = state
}

// SetRerankerInfo overrides the reranker description derived from config,
// e.g. when scoring fell back to passthrough for lack of credentials.
func (s *Server) SetRerankerInfo(info RerankerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reranker = info
}

// SetQueryLog attaches the query log and registers the query_metrics resource.
func (s *Server) SetQueryLog(l *telemetry.QueryLog) {
	s.mu.Lock()
	s.queryLog = l
	s.mu.Unlock()

	if l != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return version.Name, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: ToolSearchDocuments, Description: searchDocumentsDescription},
		{Name: ToolIndexStatus, Description: indexStatusDescription},
	}
}

// CallTool invokes a tool by name with decoded JSON arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearchDocuments:
		input, err := parseSearchArgs(args)
		if err != nil {
			return nil, err
		}
		return s.handleSearchDocuments(ctx, input)
	case ToolIndexStatus:
		return s.handleIndexStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func parseSearchArgs(args map[string]any) (SearchDocumentsInput, error) {
	var input SearchDocumentsInput
	query, ok := args["query"].(string)
	if !ok {
		return input, NewInvalidParamsError("query parameter is required and must be a string")
	}
	input.Query = query

	switch v := args["top_k"].(type) {
	case nil:
	case float64:
		input.TopK = int(v)
	case int:
		input.TopK = v
	default:
		return input, NewInvalidParamsError("top_k must be a number")
	}
	return input, nil
}

// handleSearchDocuments runs hybrid retrieval followed by reranking.
func (s *Server) handleSearchDocuments(ctx context.Context, input SearchDocumentsInput) (SearchDocumentsOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return SearchDocumentsOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}

	start := time.Now()
	requestID := uuid.NewString()
	topK := clampLimit(input.TopK, defaultTopK, 1, maxTopK)

	s.logger.Info("search_documents started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("top_k", topK))

	results, err := s.engine.Retrieve(ctx, input.Query, search.SearchOptions{
		TopK: topK,
		Mode: search.ModeHybrid,
	})
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("search_documents failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return SearchDocumentsOutput{}, MapError(err)
	}

	docs := ToDocumentResults(results)
	s.logger.Info("search_documents completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(docs)))

	return SearchDocumentsOutput{Results: docs, Message: searchMessage(len(docs))}, nil
}

// handleIndexStatus reports the live snapshot, the embedder actually in use
// and the query log summary.
func (s *Server) handleIndexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	stats := s.engine.Stats()

	s.mu.RLock()
	snapshot := s.snapshot
	reranker := s.reranker
	queryLog := s.queryLog
	s.mu.RUnlock()

	out := &IndexStatusOutput{
		Status: "ready",
		Index: IndexStats{
			Documents:         stats.NumDocuments,
			EmbeddingDim:      stats.EmbeddingDim,
			SemanticAvailable: stats.SemanticAvailable,
			Generation:        stats.Generation,
		},
		Embeddings: EmbeddingInfo{
			Provider:    s.config.Embeddings.Provider,
			Model:       s.config.Embeddings.Model,
			ActualModel: "none",
			Status:      "unavailable",
		},
		Reranker: reranker,
		Snapshot: snapshot,
	}
	if stats.NumDocuments == 0 {
		out.Status = "empty"
	}
	if !stats.BuiltAt.IsZero() {
		out.Index.BuiltAt = stats.BuiltAt.UTC().Format(time.RFC3339)
	}

	if s.embedder != nil {
		out.Embeddings.ActualModel = s.embedder.ModelName()
		out.Embeddings.Dimensions = s.embedder.Dimensions()
		if s.embedder.Available(ctx) {
			out.Embeddings.Status = "ready"
		}
	}

	if queryLog != nil {
		snap := queryLog.Snapshot(0)
		out.Queries = &QuerySummary{
			Total:         snap.TotalQueries,
			ByMode:        snap.ModeCounts,
			ZeroResultPct: snap.ZeroResultPercentage(),
		}
	}

	s.logger.Debug("index_status completed",
		slog.String("status", out.Status),
		slog.Int("documents", stats.NumDocuments))
	return out, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolSearchDocuments,
		Description: searchDocumentsDescription,
	}, s.mcpSearchDocumentsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolIndexStatus,
		Description: indexStatusDescription,
	}, s.mcpIndexStatusHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", 2))
}

// mcpSearchDocumentsHandler returns the structured output together with a
// plain-text rendering for clients that only read text content.
func (s *Server) mcpSearchDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocumentsInput) (
	*mcp.CallToolResult,
	SearchDocumentsOutput,
	error,
) {
	out, err := s.handleSearchDocuments(ctx, input)
	if err != nil {
		return nil, SearchDocumentsOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatDocuments(out.Results)}},
	}, out, nil
}

func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.handleIndexStatus(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// Transports accepted by Serve.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Serve runs the server until ctx is canceled. The http transport listens on
// addr using the streamable HTTP protocol.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("addr", addr))

	switch transport {
	case TransportStdio:
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	case TransportHTTP:
		return s.serveHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: %s, %s)", transport, TransportStdio, TransportHTTP)
	}
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	if addr == "" {
		return NewInvalidParamsError("http transport requires an address")
	}
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	}
}

// Close releases server resources. The MCP session ends when the Serve
// context is canceled.
func (s *Server) Close() error {
	return nil
}
