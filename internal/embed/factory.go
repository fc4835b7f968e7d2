package embed

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
)

// ProviderType names an embedding backend.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	ProviderStatic ProviderType = "static"
	ProviderNone   ProviderType = "none"
)

// ValidProviders returns accepted provider names.
func ValidProviders() []string {
	return []string{string(ProviderOpenAI), string(ProviderOllama), string(ProviderStatic), string(ProviderNone)}
}

// IsValidProvider reports whether s names a provider.
func IsValidProvider(s string) bool {
	for _, p := range ValidProviders() {
		if strings.EqualFold(s, p) {
			return true
		}
	}
	return false
}

// Config selects and configures an embedder.
type Config struct {
	Provider   ProviderType
	Model      string
	Host       string
	APIKey     string
	BaseURL    string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration

	// CacheSize is the LRU size; negative disables caching.
	CacheSize int
}

// New builds the configured embedder, wrapped in an LRU cache.
//
// A missing OpenAI key is not an error: it yields UnavailableEmbedder and a
// warning, so lexical search keeps working. An unknown provider is an error.
func New(cfg Config) (Embedder, error) {
	var e Embedder
	switch ProviderType(strings.ToLower(string(cfg.Provider))) {
	case "", ProviderOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			slog.Warn("embedder_unavailable",
				slog.String("provider", string(ProviderOpenAI)),
				slog.String("reason", "no API key configured"))
			return UnavailableEmbedder{Reason: "no OpenAI API key"}, nil
		}
		e = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:    key,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.Timeout,
		})
	case ProviderOllama:
		e = NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		})
	case ProviderStatic:
		e = NewStaticEmbedder(cfg.Dimensions)
	case ProviderNone:
		return UnavailableEmbedder{Reason: "disabled by configuration"}, nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeUnknownProvider,
			fmt.Sprintf("unknown embedding provider %q", cfg.Provider), nil).
			WithSuggestion("use one of: " + strings.Join(ValidProviders(), ", "))
	}

	if cfg.CacheSize < 0 {
		return e, nil
	}
	return NewCachedEmbedder(e, cfg.CacheSize), nil
}
