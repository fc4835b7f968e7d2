package tokenize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultEncoding is the tiktoken encoding used to size chunks.
	DefaultEncoding = "cl100k_base"

	// RuneEncoding selects RuneTokenizer.
	RuneEncoding = "rune"
)

// LengthTokenizer measures and cuts text in model tokens. Encode followed by
// Decode must return the original text, and both must be deterministic.
type LengthTokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
	Name() string
}

// Tiktoken is a LengthTokenizer backed by an OpenAI BPE encoding.
type Tiktoken struct {
	name string
	enc  *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding. tiktoken-go fetches the BPE ranks on
// first use and caches them under TIKTOKEN_CACHE_DIR, so this can fail offline.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &Tiktoken{name: encoding, enc: enc}, nil
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode returns the text for tokens. A window cut inside a multi-byte rune
// decodes to U+FFFD rather than producing invalid UTF-8.
func (t *Tiktoken) Decode(tokens []int) string {
	s := t.enc.Decode(tokens)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return s
}

func (t *Tiktoken) Name() string { return t.name }

// RuneTokenizer treats every rune as one token. It needs no model data, which
// makes chunk arithmetic exact in tests and usable offline.
type RuneTokenizer struct{}

func (RuneTokenizer) Encode(text string) []int {
	out := make([]int, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, int(r))
	}
	return out
}

func (RuneTokenizer) Decode(tokens []int) string {
	var sb strings.Builder
	sb.Grow(len(tokens))
	for _, t := range tokens {
		sb.WriteRune(rune(t))
	}
	return sb.String()
}

func (RuneTokenizer) Name() string { return RuneEncoding }

// NewLengthTokenizer returns the tokenizer for name: "rune" or any tiktoken
// encoding name. An empty name selects cl100k_base.
func NewLengthTokenizer(name string) (LengthTokenizer, error) {
	if name == RuneEncoding {
		return RuneTokenizer{}, nil
	}
	return NewTiktoken(name)
}
