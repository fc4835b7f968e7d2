package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/travelrag/internal/chunk"
	"github.com/Aman-CERP/travelrag/internal/search"
)

const (
	defaultTopK = search.DefaultTopK
	maxTopK     = 50

	// textPreviewRunes bounds each chunk in the plain-text rendering.
	textPreviewRunes = 500
)

// ToDocumentResults converts reranked results into tool output.
func ToDocumentResults(results []search.RankedResult) []DocumentResult {
	out := make([]DocumentResult, 0, len(results))
	for _, r := range results {
		source := metaString(r.Metadata, "source")
		if source == "" {
			source = chunk.UnknownSource
		}
		out = append(out, DocumentResult{
			Content:     r.Content,
			Section:     metaString(r.Metadata, "section"),
			Source:      source,
			Score:       r.RerankScore,
			Explanation: r.Explanation,
		})
	}
	return out
}

// FormatDocuments renders results as plain text for agents that read the
// text content rather than the structured output.
func FormatDocuments(results []DocumentResult) string {
	if len(results) == 0 {
		return "No relevant documents found."
	}

	var sb strings.Builder
	sb.WriteString("Relevant information found:\n\n")
	for _, r := range results {
		label := r.Section
		if label == "" {
			label = chunk.UnknownSource
		}
		fmt.Fprintf(&sb, "[Source: %s] (score: %.2f)\n%s\n\n", label, r.Score, truncateRunes(r.Content, textPreviewRunes))
	}
	return sb.String()
}

func searchMessage(n int) string {
	if n == 1 {
		return "Found 1 relevant document"
	}
	return fmt.Sprintf("Found %d relevant documents", n)
}

// clampLimit clamps limit to [min, max], using defaultVal when limit <= 0.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
