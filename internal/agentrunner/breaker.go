package agentrunner

import (
	"context"
	"time"

	"github.com/revisoria/deliberation/internal/modelport"
	"github.com/sony/gobreaker"
)

// breakerPort wraps a modelport.Port with a circuit breaker shared across
// deliberations that use the same underlying model backend.
// It is deliberately not applied to RetrievalPort: a degraded retrieval
// call already degrades locally and must never block on a
// breaker trip.
type breakerPort struct {
	inner   modelport.Port
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerPort builds a modelport.Port that trips after three
// consecutive failures and stays open for 30s before allowing a trial
// request through, matching the per-stage "up to three attempts" retry
// budget.
func NewBreakerPort(inner modelport.Port, name string) modelport.Port {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &breakerPort{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerPort) Invoke(ctx context.Context, req modelport.Request) (modelport.Response, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Invoke(ctx, req)
	})
	if err != nil {
		return modelport.Response{}, err
	}
	return result.(modelport.Response), nil
}

// withRetry calls invoke up to maxAttempts times with exponential backoff
// between attempts. It does not retry a context
// cancellation: that is a caller-requested stop, not a model failure.
func withRetry(ctx context.Context, maxAttempts int, invoke func() (modelport.Response, error)) (modelport.Response, error) {
	var lastErr error
	backoff := 200 * time.Millisecond
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := invoke()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return modelport.Response{}, ctx.Err()
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return modelport.Response{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return modelport.Response{}, lastErr
}
