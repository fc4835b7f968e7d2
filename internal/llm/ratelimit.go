package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited delays calls to stay under a fixed request rate.
type RateLimited struct {
	inner   Completer
	limiter *rate.Limiter
}

var _ Completer = (*RateLimited)(nil)

// NewRateLimited allows rps sustained calls per second with the given burst.
func NewRateLimited(inner Completer, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// Complete waits for a token, then calls through. A cancelled context while
// waiting returns its error without calling the service.
func (r *RateLimited) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Complete(ctx, prompt, maxTokens)
}
