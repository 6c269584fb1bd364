package llm

import (
	"context"
	stderrors "errors"
	"time"

	"resumepilot/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the per-provider circuit breaker.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// BreakerCompleter guards a provider client with a circuit breaker. While the
// breaker is open, Complete fails immediately so the generator moves on to the
// next provider without waiting on one that keeps failing.
type BreakerCompleter struct {
	inner Completer
	cb    *gobreaker.CircuitBreaker[Completion]
}

// NewBreakerCompleter wraps inner with a breaker named after the provider.
func NewBreakerCompleter(provider string, inner Completer, s BreakerSettings, logger *errors.Logger) *BreakerCompleter {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	settings := gobreaker.Settings{
		Name:        "llm-" + provider,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the provider's fault.
			return err == nil || stderrors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"provider", provider,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", s.FailureThreshold)
		},
	}

	return &BreakerCompleter{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[Completion](settings),
	}
}

func (b *BreakerCompleter) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	return b.cb.Execute(func() (Completion, error) {
		return b.inner.Complete(ctx, req)
	})
}

// Unwrap returns the guarded client.
func (b *BreakerCompleter) Unwrap() Completer {
	return b.inner
}

// State returns the breaker state name.
func (b *BreakerCompleter) State() string {
	return b.cb.State().String()
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *BreakerCompleter) IsHealthy() bool {
	return b.cb.State() == gobreaker.StateClosed
}

// Stats returns circuit breaker statistics
func (b *BreakerCompleter) Stats() map[string]any {
	counts := b.cb.Counts()
	return map[string]any{
		"enabled":              true,
		"name":                 b.cb.Name(),
		"state":                b.cb.State().String(),
		"requests":             counts.Requests,
		"total_successes":      counts.TotalSuccesses,
		"total_failures":       counts.TotalFailures,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}

func unwrapClient(c Completer) Completer {
	for {
		u, ok := c.(interface{ Unwrap() Completer })
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}
