package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangChainCompleter adapts any langchaingo model.
type LangChainCompleter struct {
	model   llms.Model
	timeout time.Duration
}

var _ Completer = (*LangChainCompleter)(nil)

// NewLangChainCompleter wraps model.
func NewLangChainCompleter(model llms.Model, timeout time.Duration) *LangChainCompleter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LangChainCompleter{model: model, timeout: timeout}
}

// NewOllamaCompleter talks to a local Ollama server through langchaingo.
func NewOllamaCompleter(host, model string, timeout time.Duration) (*LangChainCompleter, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	m, err := ollama.New(
		ollama.WithServerURL(strings.TrimRight(host, "/")),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewLangChainCompleter(m, timeout), nil
}

func (c *LangChainCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(0),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("langchain completion: %w", err)
	}
	return out, nil
}
