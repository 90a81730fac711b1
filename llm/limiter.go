package llm

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedProvider throttles Completion calls on an inner provider with a
// token-bucket limiter. Waiting respects the caller's context deadline, so a
// per-call generation timeout also bounds time spent queued behind the
// limiter.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimitedProvider wraps provider with a limiter of rps requests per
// second and the given burst. A non-positive rps disables limiting.
func NewRateLimitedProvider(provider Provider, rps float64, burst int, logger *zap.Logger) *RateLimitedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &RateLimitedProvider{
		inner:   provider,
		limiter: limiter,
		logger:  logger.With(zap.String("component", "rate_limited_provider")),
	}
}

func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

func (p *RateLimitedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.logger.Warn("rate limiter wait aborted", zap.Error(err))
			return nil, err
		}
	}
	return p.inner.Completion(ctx, req)
}
