// Package limiter protects a remote backend with rate limiting and a
// circuit breaker.
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardConfig holds protection settings for one backend.
type GuardConfig struct {
	Name string

	// RequestsPerMinute caps the request rate; zero disables limiting.
	RequestsPerMinute float64
	Burst             int

	// Circuit breaker settings.
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// DefaultGuardConfig returns conservative defaults for an embedding backend.
func DefaultGuardConfig(name string) *GuardConfig {
	return &GuardConfig{
		Name:              name,
		RequestsPerMinute: 600,
		Burst:             10,
		MaxRequests:       3,
		Interval:          10 * time.Second,
		Timeout:           30 * time.Second,
	}
}

// Guard serializes admission control for calls to one backend: wait for the
// rate limiter, then run the call inside the circuit breaker.
type Guard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuard creates a guard from config.
func NewGuard(config *GuardConfig) *Guard {
	if config == nil {
		config = DefaultGuardConfig("backend")
	}

	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerMinute/60.0), burst)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	})

	return &Guard{limiter: limiter, breaker: breaker}
}

// Do runs fn under the guard. A tripped breaker or an exhausted context
// fails fast without invoking fn.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	_, err := g.breaker.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// State reports the breaker state, for health endpoints.
func (g *Guard) State() gobreaker.State { return g.breaker.State() }
