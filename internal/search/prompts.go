package search

import (
	"fmt"
	"strings"
)

const (
	// itemContentLimit caps candidate text in a per-item prompt, in characters.
	itemContentLimit = 1500

	// batchContentLimit caps each candidate's text in a batch prompt.
	batchContentLimit = 500

	itemMaxTokens  = 100
	batchMaxTokens = 500
)

const itemPromptTemplate = `Score the relevance of this travel information to the query on a scale of 0-10.

Query: %s

Information:
%s

Respond with ONLY a JSON object:
{"score": <number 0-10>, "reason": "<brief explanation>"}`

const batchPromptTemplate = `Score each document's relevance to the travel query (0-10).

Query: %s

Documents:%s

Respond with ONLY a JSON array of scores:
[{"doc": 1, "score": <0-10>}, {"doc": 2, "score": <0-10>}, ...]`

func itemPrompt(query, content string) string {
	return fmt.Sprintf(itemPromptTemplate, query, truncateChars(content, itemContentLimit))
}

// batchPrompt labels candidates [Doc 1]..[Doc n].
func batchPrompt(query string, candidates []Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "\n[Doc %d]: %s\n", i+1, truncateChars(c.Content, batchContentLimit))
	}
	return fmt.Sprintf(batchPromptTemplate, query, b.String())
}

// truncateChars keeps the first n characters (runes) of s.
func truncateChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
