package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/output"
	"github.com/Aman-CERP/travelrag/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	mode       string
	fusion     string
	topK       int
	rerank     bool
	jsonOutput bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `Search the saved index. Hybrid mode runs BM25 and embedding search
concurrently and fuses them with Reciprocal Rank Fusion (or weighted
fusion). --rerank passes the fused list through the relevance-scoring model.`,
		Example: `  travelrag search "when does my flight to Rome leave"
  travelrag search "hotel check-in" --mode lexical --top-k 3
  travelrag search "museum tickets" --rerank --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, root, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(search.ModeHybrid), "Retrieval mode: hybrid, lexical, semantic")
	cmd.Flags().StringVar(&opts.fusion, "fusion", "", "Fusion mode: rrf, weighted (default from config)")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Number of results (default from config)")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Rerank results with the relevance-scoring model")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func (o searchOptions) validate() error {
	switch search.Mode(o.mode) {
	case search.ModeHybrid, search.ModeLexical, search.ModeSemantic:
	default:
		return apperrors.ValidationError(fmt.Sprintf("unknown mode %q", o.mode), nil).
			WithSuggestion("use one of: hybrid, lexical, semantic")
	}
	switch search.FusionMode(o.fusion) {
	case "", search.FusionRRF, search.FusionWeighted:
	default:
		return apperrors.ValidationError(fmt.Sprintf("unknown fusion %q", o.fusion), nil).
			WithSuggestion("use one of: rrf, weighted")
	}
	if o.topK < 0 {
		return apperrors.ValidationError("top-k must not be negative", nil)
	}
	return nil
}

// searchHit is the JSON form of a search.SearchResult.
type searchHit struct {
	ID        string  `json:"id"`
	Section   string  `json:"section,omitempty"`
	Source    string  `json:"source"`
	Retrieval string  `json:"retrieval"`
	Score     float64 `json:"score"`
	Content   string  `json:"content"`
}

func toSearchHits(results []search.SearchResult) []searchHit {
	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{
			ID:        r.Document.ID,
			Section:   r.Document.Section(),
			Source:    r.Document.Source,
			Retrieval: string(r.Source),
			Score:     r.Score,
			Content:   r.Document.Content,
		})
	}
	return hits
}

func runSearch(ctx context.Context, cmd *cobra.Command, root *rootOptions, query string, opts searchOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, opts.rerank)
	if err != nil {
		return err
	}
	defer a.Close()

	restored, err := a.restore(ctx)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if !opts.jsonOutput {
		if search.Mode(opts.mode) != search.ModeLexical && !restored.Semantic {
			out.Warning("Semantic search unavailable; lexical results only")
		}
		if restored.Check.Stale() {
			out.Warning("Index was built with different chunking settings; run 'travelrag index' to refresh")
		}
	}

	sopts := cfg.SearchOptions()
	sopts.Mode = search.Mode(opts.mode)
	if opts.fusion != "" {
		sopts.Fusion = search.FusionMode(opts.fusion)
	}
	if opts.topK > 0 {
		sopts.TopK = opts.topK
	}

	slog.Info("search_started",
		slog.String("query", query),
		slog.String("mode", opts.mode),
		slog.Int("top_k", sopts.TopK),
		slog.Bool("rerank", opts.rerank))

	if opts.rerank {
		ranked, err := a.engine.Retrieve(ctx, query, sopts)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return out.JSON(ranked)
		}
		out.RankedResults(query, ranked)
		return nil
	}

	results, err := a.engine.Search(ctx, query, sopts)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return out.JSON(toSearchHits(results))
	}
	out.SearchResults(query, results)
	return nil
}
