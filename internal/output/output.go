// Package output formats CLI output: status lines, ranked results and index
// statistics. Color is used only on terminals.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Aman-CERP/travelrag/internal/index"
	"github.com/Aman-CERP/travelrag/internal/search"
	"github.com/Aman-CERP/travelrag/internal/telemetry"
)

// previewRunes bounds the content shown per result.
const previewRunes = 240

// Writer writes formatted output. Write errors are ignored: this is
// console output.
type Writer struct {
	out    io.Writer
	styles Styles
	color  bool
}

// New creates a Writer, colored when out is a terminal.
func New(out io.Writer) *Writer {
	if ColorEnabled(out) {
		return &Writer{out: out, styles: DefaultStyles(), color: true}
	}
	return NewPlain(out)
}

// NewPlain creates a Writer that never emits escape codes.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: NoColorStyles()}
}

// Status prints msg after icon, or indented when icon is "".
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

func (w *Writer) Success(msg string) { w.Status(w.styles.Success.Render("✓"), msg) }

func (w *Writer) Successf(format string, args ...any) { w.Success(fmt.Sprintf(format, args...)) }

func (w *Writer) Warning(msg string) { w.Status(w.styles.Warning.Render("!"), msg) }

func (w *Writer) Warningf(format string, args ...any) { w.Warning(fmt.Sprintf(format, args...)) }

func (w *Writer) Error(msg string) { w.Status(w.styles.Error.Render("✗"), msg) }

func (w *Writer) Errorf(format string, args ...any) { w.Error(fmt.Sprintf(format, args...)) }

func (w *Writer) Newline() { _, _ = fmt.Fprintln(w.out) }

// Header prints a bold section title.
func (w *Writer) Header(title string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(title))
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// Results
// =============================================================================

// RankedResults prints reranked results best first.
func (w *Writer) RankedResults(query string, results []search.RankedResult) {
	if len(results) == 0 {
		w.Warningf("No results for %q", query)
		return
	}
	w.Header(fmt.Sprintf("%d results for %q", len(results), query))
	for i, r := range results {
		w.Newline()
		scores := fmt.Sprintf("rerank %.3f  original %.4f", r.RerankScore, r.OriginalScore)
		w.result(i+1, metaString(r.Metadata, "source"), metaString(r.Metadata, "section"), scores, r.Content)
		if r.Explanation != "" {
			_, _ = fmt.Fprintf(w.out, "   %s %s\n", w.styles.Label.Render("why:"), r.Explanation)
		}
	}
}

// SearchResults prints retrieval results before reranking.
func (w *Writer) SearchResults(query string, results []search.SearchResult) {
	if len(results) == 0 {
		w.Warningf("No results for %q", query)
		return
	}
	w.Header(fmt.Sprintf("%d results for %q", len(results), query))
	for i, r := range results {
		w.Newline()
		scores := fmt.Sprintf("%s %.4f", r.Source, r.Score)
		w.result(i+1, r.Document.Source, r.Document.Section(), scores, r.Document.Content)
	}
}

func (w *Writer) result(rank int, source, section, scores, content string) {
	title := fmt.Sprintf("%d. %s", rank, source)
	if section != "" {
		title += " › " + section
	}
	_, _ = fmt.Fprintf(w.out, "%s  %s\n", w.styles.Header.Render(title), w.styles.Score.Render(scores))
	_, _ = fmt.Fprintf(w.out, "   %s\n", preview(content))
}

func preview(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	r := []rune(s)
	if len(r) > previewRunes {
		return string(r[:previewRunes]) + "…"
	}
	return s
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// =============================================================================
// Stats
// =============================================================================

// Stats prints engine statistics in a panel.
func (w *Writer) Stats(s search.Stats, state map[string]string) {
	rows := [][2]string{
		{"documents", fmt.Sprintf("%d", s.NumDocuments)},
		{"bm25", fmt.Sprintf("%t", s.BM25Initialized)},
		{"semantic", fmt.Sprintf("%t", s.SemanticAvailable)},
	}
	if s.SemanticAvailable {
		rows = append(rows, [2]string{"embedding dim", fmt.Sprintf("%d", s.EmbeddingDim)})
	}
	for _, k := range []string{"embedding_model", "tokenizer", "chunk_size", "chunk_overlap", "built_at", "corpus_dir"} {
		if v, ok := state[k]; ok && v != "" {
			rows = append(rows, [2]string{strings.ReplaceAll(k, "_", " "), v})
		}
	}
	w.panel("Index", rows)
}

// QueryLog prints recent query patterns.
func (w *Writer) QueryLog(snap telemetry.QueryLogSnapshot) {
	rows := [][2]string{
		{"queries", fmt.Sprintf("%d", snap.TotalQueries)},
		{"zero results", fmt.Sprintf("%d (%.1f%%)", snap.ZeroResultCount, snap.ZeroResultPercentage())},
	}
	for _, mode := range slices.Sorted(maps.Keys(snap.ModeCounts)) {
		rows = append(rows, [2]string{"mode " + mode, fmt.Sprintf("%d", snap.ModeCounts[mode])})
	}
	if len(snap.TopTerms) > 0 {
		terms := make([]string, len(snap.TopTerms))
		for i, t := range snap.TopTerms {
			terms[i] = fmt.Sprintf("%s(%d)", t.Term, t.Count)
		}
		rows = append(rows, [2]string{"top terms", strings.Join(terms, " ")})
	}
	w.panel("Queries", rows)
}

func (w *Writer) panel(title string, rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	var b strings.Builder
	b.WriteString(w.styles.Header.Render(title))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(w.styles.Label.Render(fmt.Sprintf("%-*s", width, r[0])))
		b.WriteString("  ")
		b.WriteString(r[1])
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Panel.Render(b.String()))
}

// =============================================================================
// Indexing progress
// =============================================================================

// StageReporter prints one line per finished indexing stage.
type StageReporter struct {
	w *Writer
}

var _ index.Reporter = StageReporter{}

// Reporter returns an index.Reporter that writes to w.
func (w *Writer) Reporter() StageReporter { return StageReporter{w: w} }

func (r StageReporter) StageDone(stage index.Stage, elapsed time.Duration, detail string) {
	r.w.Status(r.w.styles.Success.Render("✓"),
		fmt.Sprintf("%-8s %8s  %s", stage, elapsed.Round(time.Millisecond), r.w.styles.Dim.Render(detail)))
}

// IndexSummary prints the outcome of an indexing run.
func (w *Writer) IndexSummary(res *index.Result) {
	w.Successf("Indexed %d chunks from %d files in %s", res.Chunks, res.Files, res.Duration.Round(time.Millisecond))
	if !res.Semantic {
		w.Warning("Semantic search unavailable; lexical results only")
	}
	for _, fe := range res.FileErrors {
		w.Warningf("Skipped %s: %v", fe.Path, fe.Err)
	}
	if res.SnapshotPath != "" {
		w.Status("", "snapshot: "+res.SnapshotPath)
	}
}
