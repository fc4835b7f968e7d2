// Package tokenize turns text into the two token streams the engine needs:
// lowercase alphanumeric terms for lexical scoring, and length tokens for
// sizing chunk windows.
package tokenize

import (
	"strings"
	"unicode"
)

// Lexical lowercases text and returns its maximal runs of letters and digits.
// Every other character ends a run. No stemming, no stopword removal.
func Lexical(text string) []string {
	tokens := []string{}
	if text == "" {
		return tokens
	}

	lower := strings.ToLower(text)
	start := -1
	for i, r := range lower {
		if isTermRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, lower[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, lower[start:])
	}
	return tokens
}

// Span is a lexical token with its byte offsets in the lowercased text.
type Span struct {
	Term  string
	Start int
	End   int
}

// LexicalSpans is Lexical with byte offsets, for analyzers that need positions.
func LexicalSpans(text string) []Span {
	spans := []Span{}
	lower := strings.ToLower(text)
	start := -1
	for i, r := range lower {
		if isTermRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, Span{Term: lower[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{Term: lower[start:], Start: start, End: len(lower)})
	}
	return spans
}

func isTermRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
