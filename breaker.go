package huntlay

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures a BreakerProvider.
type BreakerConfig struct {
	Name        string        // Breaker name, shown in state change logs
	MaxFailures uint32        // Consecutive failures that open the circuit (default: 5)
	OpenTimeout time.Duration // Time spent open before a trial call (default: 30s)
	OnChange    func(name string, from, to gobreaker.State)
}

// BreakerProvider stops calling a failing provider for a while so the
// translate endpoint degrades to its fallback quickly instead of piling up
// slow upstream calls.
type BreakerProvider struct {
	provider AIProvider
	cb       *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps provider with a circuit breaker.
func NewBreakerProvider(provider AIProvider, cfg BreakerConfig) *BreakerProvider {
	if cfg.Name == "" {
		cfg.Name = "translate"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// a caller giving up is not the upstream's fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: cfg.OnChange,
	}

	return &BreakerProvider{
		provider: provider,
		cb:       gobreaker.NewCircuitBreaker(settings),
	}
}

// Translate implements AIProvider.
func (p *BreakerProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		return p.provider.Translate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ProviderError{Message: "circuit open", Cause: err}
		}
		return nil, err
	}
	return out.([]string), nil
}

// State returns the breaker state.
func (p *BreakerProvider) State() gobreaker.State {
	return p.cb.State()
}

var (
	_ AIProvider = (*RetryableProvider)(nil)
	_ AIProvider = (*RateLimitedProvider)(nil)
	_ AIProvider = (*BreakerProvider)(nil)
)
