package config

import (
	"time"

	"github.com/Aman-CERP/travelrag/internal/chunk"
	"github.com/Aman-CERP/travelrag/internal/embed"
	"github.com/Aman-CERP/travelrag/internal/llm"
	"github.com/Aman-CERP/travelrag/internal/search"
	"github.com/Aman-CERP/travelrag/internal/store"
)

// ChunkOptions returns the window sizing for the chunker.
func (c *Config) ChunkOptions() chunk.Options {
	return chunk.Options{Size: c.Chunking.Size, Overlap: c.Chunking.Overlap}
}

// EmbedConfig returns the embedder factory settings.
func (c *Config) EmbedConfig() embed.Config {
	return embed.Config{
		Provider:   embed.ProviderType(c.Embeddings.Provider),
		Model:      c.Embeddings.Model,
		Host:       c.Embeddings.Host,
		APIKey:     c.Embeddings.APIKey,
		BaseURL:    c.Embeddings.BaseURL,
		Dimensions: c.Embeddings.Dimensions,
		BatchSize:  c.Embeddings.BatchSize,
		Timeout:    ParseDuration(c.Embeddings.Timeout, embed.DefaultTimeout),
		CacheSize:  c.Embeddings.CacheSize,
	}
}

// LLMConfig returns the scoring service settings.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:          llm.Provider(c.Reranker.Provider),
		Model:             c.Reranker.Model,
		Host:              c.Reranker.Host,
		APIKey:            c.Reranker.APIKey,
		BaseURL:           c.Reranker.BaseURL,
		Timeout:           ParseDuration(c.Reranker.Timeout, llm.DefaultTimeout),
		RequestsPerSecond: c.Reranker.RequestsPerSecond,
	}
}

// RerankerConfig returns the LLM reranker settings.
func (c *Config) RerankerConfig() search.LLMRerankerConfig {
	return search.LLMRerankerConfig{
		Mode:         search.RerankMode(c.Reranker.Mode),
		Concurrency:  c.Reranker.Concurrency,
		MaxFailures:  c.Reranker.MaxFailures,
		ResetTimeout: ParseDuration(c.Reranker.ResetTimeout, 30*time.Second),
	}
}

// EngineConfig returns the retrieval engine settings.
func (c *Config) EngineConfig() search.EngineConfig {
	bm25 := store.DefaultBM25Config()
	bm25.K1 = c.Search.BM25K1
	bm25.B = c.Search.BM25B
	return search.EngineConfig{
		Fusion:      search.FusionMode(c.Search.Fusion),
		RRFConstant: c.Search.RRFConstant,
		Weights: search.Weights{
			Lexical:  c.Search.LexicalWeight,
			Semantic: c.Search.SemanticWeight,
		},
		CandidateMultiplier: c.Search.CandidateMultiplier,
		LexicalBackend:      c.Search.LexicalBackend,
		VectorBackend:       c.Search.VectorBackend,
		BM25:                bm25,
	}
}

// SearchOptions returns per-query defaults for mode hybrid.
func (c *Config) SearchOptions() search.SearchOptions {
	return search.SearchOptions{
		TopK:   c.Search.TopK,
		Mode:   search.ModeHybrid,
		Fusion: search.FusionMode(c.Search.Fusion),
	}
}

// WatchDebounce returns the watcher debounce interval.
func (c *Config) WatchDebounce() time.Duration {
	return ParseDuration(c.Watch.Debounce, 500*time.Millisecond)
}
