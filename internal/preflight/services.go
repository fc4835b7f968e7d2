package preflight

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aman-CERP/travelrag/internal/config"
	"github.com/Aman-CERP/travelrag/internal/embed"
	"github.com/Aman-CERP/travelrag/internal/llm"
	"github.com/Aman-CERP/travelrag/internal/tokenize"
)

// CheckTokenizer checks the configured chunking tokenizer loads. A failure
// is a warning: chunks are then sized in runes.
func (c *Checker) CheckTokenizer(name string) CheckResult {
	result := CheckResult{
		Name:     "tokenizer",
		Required: false,
	}

	tok, err := tokenize.NewLengthTokenizer(name)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unavailable, chunks will be sized in runes", name)
		result.Details = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = tok.Name()
	return result
}

// CheckEmbedder probes the embedding service. An unavailable service is a
// warning: indexing and search continue lexical-only.
func (c *Checker) CheckEmbedder(ctx context.Context, provider string, embedder embed.Embedder) CheckResult {
	result := CheckResult{
		Name:     "embeddings",
		Required: false,
	}

	if embedder == nil {
		result.Status = StatusWarn
		result.Message = "not configured, semantic search disabled"
		return result
	}
	result.Details = fmt.Sprintf("provider %s, model %s", provider, embedder.ModelName())
	if !embedder.Available(ctx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unreachable, semantic search disabled", provider)
		return result
	}

	result.Status = StatusPass
	if dims := embedder.Dimensions(); dims > 0 {
		result.Message = fmt.Sprintf("%s (%d dimensions)", embedder.ModelName(), dims)
	} else {
		result.Message = embedder.ModelName()
	}
	return result
}

// CheckReranker checks the scoring service can be configured when
// reranking is enabled. It does not send a request.
func (c *Checker) CheckReranker(cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "reranker",
		Required: false,
	}

	if !cfg.Reranker.IsEnabled() {
		result.Status = StatusPass
		result.Message = "disabled, fused order is kept"
		return result
	}

	_, err := llm.New(cfg.LLMConfig())
	switch {
	case err == nil:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s, %s mode", cfg.Reranker.Provider, cfg.Reranker.Mode)
	case errors.Is(err, llm.ErrNoCredentials):
		result.Status = StatusWarn
		result.Message = "no API key, reranking falls back to the fused order"
		result.Details = err.Error()
	default:
		result.Status = StatusFail
		result.Message = err.Error()
	}
	return result
}
