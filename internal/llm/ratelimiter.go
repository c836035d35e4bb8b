package llm

import (
	"context"
	"sync"
	"time"

	"github.com/ziadkadry99/ewriter/internal/logging"
)

// RateLimitedProvider wraps a Provider with a token bucket so bursts of
// translate requests from many tabs stay under the provider's quota.
type RateLimitedProvider struct {
	provider Provider
	rpm      int
	poll     time.Duration

	mu       sync.Mutex
	tokens   float64
	lastFill time.Time
}

// NewRateLimitedProvider wraps the given provider with a rate limiter
// that allows at most rpm requests per minute.
func NewRateLimitedProvider(provider Provider, rpm int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		rpm:      rpm,
		poll:     100 * time.Millisecond,
		tokens:   float64(rpm),
		lastFill: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

// Unwrap returns the underlying provider.
func (r *RateLimitedProvider) Unwrap() Provider {
	return r.provider
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// take refills the bucket from elapsed time and consumes one token if available.
func (r *RateLimitedProvider) take(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := now.Sub(r.lastFill)
	if elapsed > 0 {
		r.tokens += elapsed.Minutes() * float64(r.rpm)
		if r.tokens > float64(r.rpm) {
			r.tokens = float64(r.rpm)
		}
		r.lastFill = now
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	logged := false
	for {
		if r.take(time.Now()) {
			return nil
		}
		if !logged {
			logging.FromContext(ctx).Debug().
				Str("provider", r.provider.Name()).
				Int("rpm", r.rpm).
				Msg("rate limit reached, waiting for a token")
			logged = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.poll):
		}
	}
}
