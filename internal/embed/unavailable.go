package embed

import "context"

// UnavailableEmbedder stands in when no embedding service is configured.
// Every call fails with ErrUnavailable, which the search engine treats as
// "semantic retrieval off" rather than a fatal error.
type UnavailableEmbedder struct {
	Reason string
}

func (u UnavailableEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrUnavailable
}

func (u UnavailableEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

func (u UnavailableEmbedder) Dimensions() int { return 0 }

func (u UnavailableEmbedder) ModelName() string { return "none" }

func (u UnavailableEmbedder) Available(context.Context) bool { return false }

func (u UnavailableEmbedder) Close() error { return nil }

var _ Embedder = UnavailableEmbedder{}
