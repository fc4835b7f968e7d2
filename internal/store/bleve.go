package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	index "github.com/blevesearch/bleve_index_api"

	"github.com/Aman-CERP/travelrag/internal/tokenize"
)

const (
	// TermTokenizerName registers tokenize.Lexical with bleve.
	TermTokenizerName = "travel_terms"

	// TermAnalyzerName is the analyzer built on TermTokenizerName.
	TermAnalyzerName = "travel_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(TermTokenizerName, termTokenizerConstructor)
}

// BleveIndex is a LexicalIndex backed by an in-memory bleve index. It uses the
// same term rules as BM25Index and bleve's BM25 scorer, whose constants and
// average length differ from BM25Index, so scores are not interchangeable.
type BleveIndex struct {
	index bleve.Index
	size  int
}

type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveIndex indexes docs in a memory-only scorch index (an empty path keeps
// segments in memory). Documents are keyed by position, so duplicate IDs in
// the set do not overwrite each other.
func NewBleveIndex(ctx context.Context, docs []*Document) (*BleveIndex, error) {
	m, err := newTermMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}
	// upsidedown keeps no field statistics and would score with TF-IDF.
	idx, err := bleve.NewUsing("", m, scorch.Name, bleve.Config.DefaultMemKVStore, nil)
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}

	batch := idx.NewBatch()
	for pos, doc := range docs {
		if err := ctx.Err(); err != nil {
			_ = idx.Close()
			return nil, err
		}
		if err := batch.Index(strconv.Itoa(pos), bleveDocument{Content: doc.Content}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index document %s: %w", doc.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("execute batch: %w", err)
	}
	return &BleveIndex{index: idx, size: len(docs)}, nil
}

func newTermMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(TermAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     TermTokenizerName,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("add analyzer: %w", err)
	}
	m.DefaultAnalyzer = TermAnalyzerName
	m.ScoringModel = index.BM25Scoring
	return m, nil
}

// Search runs a match query over content and drops non-positive scores.
func (b *BleveIndex) Search(ctx context.Context, query string, k int) ([]LexicalHit, error) {
	hits := []LexicalHit{}
	if k <= 0 || strings.TrimSpace(query) == "" {
		return hits, nil
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("content")
	req := bleve.NewSearchRequest(q)
	req.Size = k

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	for _, h := range res.Hits {
		if h.Score <= 0 {
			continue
		}
		pos, err := strconv.Atoi(h.ID)
		if err != nil {
			continue
		}
		hits = append(hits, LexicalHit{Pos: pos, Score: h.Score})
	}
	return hits, nil
}

func (b *BleveIndex) Len() int { return b.size }

func (b *BleveIndex) Close() error { return b.index.Close() }

var _ LexicalIndex = (*BleveIndex)(nil)

func termTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return termTokenizer{}, nil
}

type termTokenizer struct{}

// Tokenize emits tokenize.Lexical terms. Offsets refer to the lowercased input,
// which has the same length for the corpora this runs on.
func (termTokenizer) Tokenize(input []byte) analysis.TokenStream {
	spans := tokenize.LexicalSpans(string(input))
	out := make(analysis.TokenStream, 0, len(spans))
	for i, s := range spans {
		out = append(out, &analysis.Token{
			Term:     []byte(s.Term),
			Start:    s.Start,
			End:      s.End,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return out
}
