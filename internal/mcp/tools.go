package mcp

const (
	// ToolSearchDocuments retrieves and reranks corpus chunks.
	ToolSearchDocuments = "search_documents"

	// ToolIndexStatus reports index and service state.
	ToolIndexStatus = "index_status"

	searchDocumentsDescription = "Search through travel documents using hybrid BM25 + vector search, " +
		"reranked by relevance. Use for general questions about itineraries, hotels, flights and bookings."
	indexStatusDescription = "Report the indexed document count, whether semantic search is active " +
		"and how the snapshot was built. Use before searching to check the index is ready."
)

// SearchDocumentsInput is the input schema for search_documents.
type SearchDocumentsInput struct {
	Query string `json:"query" jsonschema:"the search query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return, default 5"`
}

// SearchDocumentsOutput is the output schema for search_documents.
type SearchDocumentsOutput struct {
	Results []DocumentResult `json:"results" jsonschema:"reranked matches, best first"`
	Message string           `json:"message" jsonschema:"human-readable summary"`
}

// DocumentResult is one reranked chunk.
type DocumentResult struct {
	Content     string  `json:"content" jsonschema:"chunk text"`
	Section     string  `json:"section,omitempty" jsonschema:"section of the source file, e.g. FLIGHTS"`
	Source      string  `json:"source,omitempty" jsonschema:"path of the source file"`
	Score       float64 `json:"score" jsonschema:"relevance score between 0 and 1"`
	Explanation string  `json:"explanation,omitempty" jsonschema:"why the scoring model rated this chunk"`
}

// IndexStatusInput is the input schema for index_status (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput is the output schema for index_status.
type IndexStatusOutput struct {
	Status     string            `json:"status" jsonschema:"ready or empty"`
	Index      IndexStats        `json:"index"`
	Embeddings EmbeddingInfo     `json:"embeddings"`
	Reranker   RerankerInfo      `json:"reranker"`
	Snapshot   map[string]string `json:"snapshot,omitempty" jsonschema:"state recorded when the snapshot was built"`
	Queries    *QuerySummary     `json:"queries,omitempty"`
}

// IndexStats describes the live snapshot.
type IndexStats struct {
	Documents         int    `json:"documents"`
	EmbeddingDim      int    `json:"embedding_dim"`
	SemanticAvailable bool   `json:"semantic_available"`
	Generation        int64  `json:"generation"`
	BuiltAt           string `json:"built_at,omitempty"`
}

// EmbeddingInfo contrasts the configured embedder with the one in use.
type EmbeddingInfo struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	ActualModel string `json:"actual_model"`
	Dimensions  int    `json:"dimensions"`
	Status      string `json:"status" jsonschema:"ready or unavailable"`
}

// RerankerInfo describes the relevance-scoring stage.
type RerankerInfo struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// QuerySummary is a compact view of the query log.
type QuerySummary struct {
	Total         int64            `json:"total"`
	ByMode        map[string]int64 `json:"by_mode"`
	ZeroResultPct float64          `json:"zero_result_pct"`
}
