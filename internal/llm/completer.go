// Package llm is the relevance-scoring service boundary: a prompt goes in,
// model text comes out. Backends are OpenAI chat completions and any
// langchaingo model (Ollama by default).
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
)

const (
	// DefaultOpenAIModel is the scoring model used by the OpenAI backend.
	DefaultOpenAIModel = "gpt-4o-mini"

	// DefaultOllamaModel is the scoring model used by the Ollama backend.
	DefaultOllamaModel = "llama3.2"

	// DefaultOllamaHost is the local Ollama endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultTimeout bounds one completion call.
	DefaultTimeout = 30 * time.Second
)

// Completer sends a single-turn prompt and returns the model's reply.
// Calls are deterministic (temperature 0) and attempted once.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Provider names a completion backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// ValidProviders returns accepted provider names.
func ValidProviders() []string {
	return []string{string(ProviderOpenAI), string(ProviderOllama)}
}

// Config selects and configures a completer.
type Config struct {
	Provider Provider
	Model    string
	Host     string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration

	// RequestsPerSecond caps outgoing calls; 0 means unlimited.
	RequestsPerSecond float64
}

// ErrNoCredentials is returned by New when the OpenAI backend has no key.
// Callers fall back to passthrough ranking.
var ErrNoCredentials = apperrors.New(apperrors.ErrCodeMissingAPIKey,
	"no API key configured for the scoring service", nil).
	WithSuggestion("set reranker.api_key or OPENAI_API_KEY, or use reranker.provider: ollama")

// New builds the configured completer, rate limited when requested.
func New(cfg Config) (Completer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var c Completer
	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case "", ProviderOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, ErrNoCredentials
		}
		c = NewOpenAICompleter(key, cfg.BaseURL, cfg.Model, cfg.Timeout)
	case ProviderOllama:
		lc, err := NewOllamaCompleter(cfg.Host, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		c = lc
	default:
		return nil, apperrors.New(apperrors.ErrCodeUnknownProvider,
			fmt.Sprintf("unknown scoring provider %q", cfg.Provider), nil).
			WithSuggestion("use one of: " + strings.Join(ValidProviders(), ", "))
	}

	slog.Debug("completer_created",
		slog.String("provider", string(cfg.Provider)),
		slog.Float64("rps", cfg.RequestsPerSecond))

	if cfg.RequestsPerSecond > 0 {
		return NewRateLimited(c, cfg.RequestsPerSecond, 1), nil
	}
	return c, nil
}
