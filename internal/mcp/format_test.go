package mcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/travelrag/internal/search"
)

func TestToDocumentResults_MapsMetadata(t *testing.T) {
	// Given: reranked results with and without source metadata
	results := []search.RankedResult{
		{
			Content:       "Flight BA117 departs 08:30",
			Metadata:      map[string]any{"section": "FLIGHTS", "source": "corpus/smith.txt"},
			OriginalScore: 0.03,
			RerankScore:   0.9,
			Explanation:   "mentions the flight",
		},
		{Content: "Hotel Artemide", Metadata: nil, RerankScore: 0.4},
	}

	// When: converting
	docs := ToDocumentResults(results)

	// Then: rerank score is reported and a missing source is "unknown"
	require.Len(t, docs, 2)
	assert.Equal(t, DocumentResult{
		Content:     "Flight BA117 departs 08:30",
		Section:     "FLIGHTS",
		Source:      "corpus/smith.txt",
		Score:       0.9,
		Explanation: "mentions the flight",
	}, docs[0])
	assert.Equal(t, "unknown", docs[1].Source)
	assert.Empty(t, docs[1].Section)
}

func TestFormatDocuments_Empty(t *testing.T) {
	assert.Equal(t, "No relevant documents found.", FormatDocuments(nil))
}

func TestFormatDocuments_LabelsBySection(t *testing.T) {
	// Given: one result with a section and one without
	docs := []DocumentResult{
		{Content: "Check-in 15:00", Section: "HOTELS", Score: 0.8},
		{Content: "Loose note", Score: 0.5},
	}

	// When: formatting
	text := FormatDocuments(docs)

	// Then: each block is labelled
	assert.True(t, strings.HasPrefix(text, "Relevant information found:\n\n"))
	assert.Contains(t, text, "[Source: HOTELS] (score: 0.80)\nCheck-in 15:00\n\n")
	assert.Contains(t, text, "[Source: unknown] (score: 0.50)\nLoose note\n\n")
}

func TestFormatDocuments_TruncatesLongContent(t *testing.T) {
	// Given: content longer than the preview bound, multibyte included
	long := strings.Repeat("é", textPreviewRunes+50)

	// When: formatting
	text := FormatDocuments([]DocumentResult{{Content: long, Section: "NOTES"}})

	// Then: the content is cut at a rune boundary
	assert.Contains(t, text, strings.Repeat("é", textPreviewRunes)+"\n")
	assert.NotContains(t, text, strings.Repeat("é", textPreviewRunes+1))
}

func TestSearchMessage(t *testing.T) {
	assert.Equal(t, "Found 0 relevant documents", searchMessage(0))
	assert.Equal(t, "Found 1 relevant document", searchMessage(1))
	assert.Equal(t, "Found 3 relevant documents", searchMessage(3))
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, 5},
		{"negative uses default", -3, 5},
		{"in range", 7, 7},
		{"above max", 500, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampLimit(tt.limit, 5, 1, 50))
		})
	}
}
