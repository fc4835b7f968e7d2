package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/store"
	"github.com/Aman-CERP/travelrag/internal/tokenize"
)

// Chunker cuts text into windows of at most Size tokens, each starting
// Size-Overlap tokens after the previous one.
type Chunker struct {
	tok      tokenize.LengthTokenizer
	opts     Options
	splitter SectionSplitter
}

// NewChunker validates opts and returns a Chunker. A nil splitter selects
// TravelSplitter.
func NewChunker(tok tokenize.LengthTokenizer, opts Options, splitter SectionSplitter) (*Chunker, error) {
	if tok == nil {
		return nil, apperrors.ValidationError("chunker requires a length tokenizer", nil)
	}
	if opts.Size <= 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunk size must be positive, got %d", opts.Size), nil)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		return nil, apperrors.New(apperrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunk overlap must be in [0, %d), got %d", opts.Size, opts.Overlap), nil).
			WithSuggestion("set chunking.overlap below chunking.size")
	}
	if splitter == nil {
		splitter = TravelSplitter{}
	}
	return &Chunker{tok: tok, opts: opts, splitter: splitter}, nil
}

// Options returns the validated window options.
func (c *Chunker) Options() Options { return c.opts }

// TokenizerName names the length tokenizer in use.
func (c *Chunker) TokenizerName() string { return c.tok.Name() }

// ChunkText splits text into documents with IDs {key}_{i}.
//
// Text that fits in one window is returned unchanged as a single chunk.
// Otherwise windows [start, start+Size) are emitted until one reaches the
// end of the text, giving ceil((N-Overlap)/(Size-Overlap)) chunks.
func (c *Chunker) ChunkText(text, key string, metadata map[string]any) []*store.Document {
	source := UnknownSource
	if s, ok := metadata["source"].(string); ok {
		source = s
	}

	tokens := c.tok.Encode(text)
	if len(tokens) <= c.opts.Size {
		return []*store.Document{newChunk(key, 0, text, source, metadata)}
	}

	step := c.opts.Size - c.opts.Overlap
	var docs []*store.Document
	for start := 0; start < len(tokens); start += step {
		end := min(start+c.opts.Size, len(tokens))
		docs = append(docs, newChunk(key, len(docs), c.tok.Decode(tokens[start:end]), source, metadata))
		if end == len(tokens) {
			break
		}
	}
	return docs
}

func newChunk(key string, idx int, content, source string, metadata map[string]any) *store.Document {
	meta := make(map[string]any, len(metadata)+1)
	maps.Copy(meta, metadata)
	meta["chunk_index"] = idx
	return &store.Document{
		ID:       fmt.Sprintf("%s_%d", key, idx),
		Content:  content,
		Metadata: meta,
		Source:   source,
	}
}

// ChunkFile splits one corpus file into sections and chunks each section
// under the key {stem}_{section}. Content that is not valid UTF-8 is rejected.
func (c *Chunker) ChunkFile(path string, content []byte) ([]*store.Document, error) {
	if !utf8.Valid(content) {
		return nil, apperrors.New(apperrors.ErrCodeFileEncoding, "file is not valid UTF-8", nil).
			WithDetail("path", path)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base := map[string]any{
		"source":   path,
		"filename": stem,
		"type":     DocumentType,
	}

	var docs []*store.Document
	for _, sec := range c.splitter.Split(string(content)) {
		meta := maps.Clone(base)
		meta["section"] = sec.Name
		docs = append(docs, c.ChunkText(sec.Text, stem+"_"+sec.Name, meta)...)
	}
	return docs, nil
}

// ChunkAll chunks every file in order. Files that fail are reported in the
// returned slice and skipped; the rest are still chunked.
func (c *Chunker) ChunkAll(ctx context.Context, files []SourceFile) ([]*store.Document, []FileError) {
	var docs []*store.Document
	var failures []FileError
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			failures = append(failures, FileError{Path: f.Path, Err: err})
			continue
		}
		chunks, err := c.ChunkFile(f.Path, f.Content)
		if err != nil {
			slog.Warn("chunk_file_skipped",
				slog.String("path", f.Path),
				slog.String("error", err.Error()))
			failures = append(failures, FileError{Path: f.Path, Err: err})
			continue
		}
		slog.Debug("chunked_file",
			slog.String("path", f.Path),
			slog.Int("chunks", len(chunks)))
		docs = append(docs, chunks...)
	}
	return docs, failures
}
