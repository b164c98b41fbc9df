// Package middleware wraps LLM providers with cross-cutting behavior.
package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	domainllm "chatloop/internal/domain/services/llm"
)

// RateLimitedProvider throttles calls to the wrapped provider with a token bucket.
// One limiter is shared by every conversation using the provider.
type RateLimitedProvider struct {
	domainllm.LLMProvider
	limiter *rate.Limiter
}

var _ domainllm.LLMProvider = (*RateLimitedProvider)(nil)

// WithRateLimit wraps provider so that at most rps calls per second start,
// with bursts of up to burst calls. rps <= 0 returns the provider unchanged.
func WithRateLimit(provider domainllm.LLMProvider, rps float64, burst int) domainllm.LLMProvider {
	if rps <= 0 {
		return provider
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		LLMProvider: provider,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GenerateResponse waits for a token, then delegates.
// A cancelled context while waiting is returned as the call's error.
func (p *RateLimitedProvider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", p.Name(), err)
	}
	return p.LLMProvider.GenerateResponse(ctx, req)
}
