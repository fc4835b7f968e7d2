// Package search is the hybrid retrieval and ranking engine. It runs lexical
// and semantic retrieval over one document set, fuses the two ranked lists
// and optionally reranks the fused list with a relevance-scoring model.
package search

import (
	"time"

	"github.com/Aman-CERP/travelrag/internal/store"
)

// SourceTag records which retrieval path produced a result.
type SourceTag string

const (
	SourceLexical  SourceTag = "lexical"
	SourceSemantic SourceTag = "semantic"
	SourceHybrid   SourceTag = "hybrid"
)

// SearchResult is one retrieved document. Document is shared with the index
// and must not be modified.
type SearchResult struct {
	Document *store.Document
	Score    float64
	Source   SourceTag
}

// Candidate is a reranker input.
type Candidate struct {
	Content  string
	Metadata map[string]any
	Score    float64
}

// RankedResult is a reranker output. RerankScore is in [0, 1] for scored
// results; on fallback it equals OriginalScore.
type RankedResult struct {
	Content       string         `json:"content"`
	Metadata      map[string]any `json:"metadata"`
	OriginalScore float64        `json:"original_score"`
	RerankScore   float64        `json:"rerank_score"`
	Explanation   string         `json:"explanation,omitempty"`
}

// Mode selects the retrieval path.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeLexical  Mode = "lexical"
	ModeSemantic Mode = "semantic"
)

// FusionMode selects how the two ranked lists are merged.
type FusionMode string

const (
	FusionRRF      FusionMode = "rrf"
	FusionWeighted FusionMode = "weighted"
)

// Weights configures weighted fusion. They are expected, not required, to
// sum to 1.
type Weights struct {
	Lexical  float64
	Semantic float64
}

// DefaultWeights returns equal weights.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.5, Semantic: 0.5}
}

// DefaultTopK is the result count when a caller does not ask for one.
const DefaultTopK = 5

// SearchOptions configures one query. Zero values take the engine defaults.
type SearchOptions struct {
	// TopK is the number of results to return (default: DefaultTopK).
	TopK int

	// Mode is hybrid, lexical or semantic (default: hybrid).
	Mode Mode

	// Fusion is rrf or weighted (default: engine config).
	Fusion FusionMode

	// Weights overrides the engine's weighted-fusion weights.
	Weights *Weights
}

// Stats describes the current index.
type Stats struct {
	NumDocuments      int       `json:"num_documents"`
	EmbeddingDim      int       `json:"embedding_dim"`
	BM25Initialized   bool      `json:"bm25_initialized"`
	SemanticAvailable bool      `json:"semantic_available"`
	BuiltAt           time.Time `json:"built_at,omitempty"`
	Generation        int64     `json:"generation"`
}

// ToCandidates converts search results into reranker input.
func ToCandidates(results []SearchResult) []Candidate {
	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = Candidate{
			Content:  r.Document.Content,
			Metadata: r.Document.Metadata,
			Score:    r.Score,
		}
	}
	return out
}
