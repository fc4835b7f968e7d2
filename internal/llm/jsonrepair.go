package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencePattern         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	unquotedKeyPattern   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls the JSON payload out of a model reply. It strips code
// fences and surrounding prose, quotes bare object keys and drops trailing
// commas. Valid JSON is returned as soon as it is found, so string values
// are never rewritten. The result may still be invalid JSON; callers decode and fall back.
func ExtractJSON(reply string) string {
	s := strings.TrimSpace(reply)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	s = outermost(s)
	if json.Valid([]byte(s)) {
		return s
	}
	s = unquotedKeyPattern.ReplaceAllString(s, `$1"$2":`)
	s = trailingCommaPattern.ReplaceAllString(s, `$1`)
	return s
}

// outermost returns the span from the first '{' or '[' to its last matching
// closer, or s unchanged when there is none.
func outermost(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}
