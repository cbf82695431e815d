package huntlay

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket guarding calls to a paid translation API.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	perSecond  float64
	lastRefill time.Time
	now        func() time.Time
}

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained rate (default: 60)
	BurstSize         int // Bucket capacity (default: RequestsPerMinute)
}

// NewRateLimiter creates a limiter whose bucket starts full.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := float64(cfg.RequestsPerMinute)
	if rpm <= 0 {
		rpm = 60
	}
	burst := float64(cfg.BurstSize)
	if burst <= 0 {
		burst = rpm
	}

	return &RateLimiter{
		tokens:     burst,
		capacity:   burst,
		perSecond:  rpm / 60,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// TryAcquire takes a token if one is available.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refillLocked()
	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

// Wait blocks until a token is taken or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / r.perSecond)
	for !r.TryAcquire() {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Available returns the current number of tokens.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	return r.tokens
}

func (r *RateLimiter) refillLocked() {
	now := r.now()
	r.tokens = min(r.capacity, r.tokens+now.Sub(r.lastRefill).Seconds()*r.perSecond)
	r.lastRefill = now
}

// RateLimitedProvider wraps an AIProvider with rate limiting.
type RateLimitedProvider struct {
	provider AIProvider
	limiter  *RateLimiter
}

// NewRateLimitedProvider creates a new rate-limited provider.
func NewRateLimitedProvider(provider AIProvider, cfg RateLimitConfig) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  NewRateLimiter(cfg),
	}
}

// Translate waits for a token, then forwards to the wrapped provider.
func (p *RateLimitedProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Message: "rate limit wait cancelled", Cause: err}
	}
	return p.provider.Translate(ctx, req)
}

// Limiter returns the underlying rate limiter.
func (p *RateLimitedProvider) Limiter() *RateLimiter {
	return p.limiter
}
