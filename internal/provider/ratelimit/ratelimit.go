package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"stocktracker/internal/provider"
)

// Fetcher gates calls to the wrapped fetcher with a token bucket.
// Calls wait for a token; when the caller's deadline would pass first the call
// fails as rate limited instead of reaching the upstream.
type Fetcher struct {
	P provider.Fetcher
	L *rate.Limiter
}

// PerMinute builds a limiter allowing rpm requests per minute with the given burst.
// rpm <= 0 disables limiting.
func PerMinute(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}

func (f *Fetcher) Name() string { return f.P.Name() }

func (f *Fetcher) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	if f.L != nil {
		if err := f.L.Wait(ctx); err != nil {
			return provider.Quote{}, fmt.Errorf("%s: waiting for upstream slot: %v: %w", f.P.Name(), err, provider.ErrRateLimitedOrInvalidSymbol)
		}
	}
	return f.P.Fetch(ctx, symbol)
}
