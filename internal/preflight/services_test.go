package preflight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/travelrag/internal/config"
	"github.com/Aman-CERP/travelrag/internal/embed"
)

func TestChecker_CheckTokenizer_Rune(t *testing.T) {
	result := New().CheckTokenizer("rune")

	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "rune", result.Message)
	assert.False(t, result.Required)
}

func TestChecker_CheckTokenizer_UnknownEncodingWarns(t *testing.T) {
	result := New().CheckTokenizer("no_such_encoding")

	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "runes")
}

func TestChecker_CheckEmbedder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		embedder embed.Embedder
		status   CheckStatus
		message  string
	}{
		{"static", embed.NewStaticEmbedder(32), StatusPass, "static-hash (32 dimensions)"},
		{"unavailable", embed.UnavailableEmbedder{Reason: "no key"}, StatusWarn, "semantic search disabled"},
		{"nil", nil, StatusWarn, "not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().CheckEmbedder(ctx, "test", tt.embedder)
			assert.Equal(t, tt.status, result.Status)
			assert.Contains(t, result.Message, tt.message)
		})
	}
}

func TestChecker_CheckReranker(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	enabled, disabled := true, false

	tests := []struct {
		name   string
		setup  func(*config.Config)
		status CheckStatus
	}{
		{"disabled", func(c *config.Config) { c.Reranker.Enabled = &disabled }, StatusPass},
		{"openai without key", func(c *config.Config) {
			c.Reranker.Enabled = &enabled
			c.Reranker.Provider = "openai"
			c.Reranker.APIKey = ""
		}, StatusWarn},
		{"openai with key", func(c *config.Config) {
			c.Reranker.Enabled = &enabled
			c.Reranker.Provider = "openai"
			c.Reranker.APIKey = "sk-test"
		}, StatusPass},
		{"unknown provider", func(c *config.Config) {
			c.Reranker.Enabled = &enabled
			c.Reranker.Provider = "abacus"
		}, StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			tt.setup(cfg)

			result := New().CheckReranker(cfg)

			assert.Equal(t, tt.status, result.Status)
			assert.False(t, result.Required)
		})
	}
}
