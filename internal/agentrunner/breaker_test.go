package agentrunner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/revisoria/deliberation/internal/modelport"
)

func TestBreakerPortPassesThroughSuccess(t *testing.T) {
	inner := modelport.NewScriptedPort([]modelport.Response{{Reasoning: "ok"}}, nil)
	port := NewBreakerPort(inner, "test")

	resp, err := port.Invoke(context.Background(), modelport.Request{})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Reasoning != "ok" {
		t.Fatalf("Reasoning = %q, want %q", resp.Reasoning, "ok")
	}
}

func TestBreakerPortTripsAfterConsecutiveFailures(t *testing.T) {
	failing := errors.New("boom")
	inner := modelport.NewScriptedPort(
		make([]modelport.Response, 4),
		[]error{failing, failing, failing, failing},
	)
	port := NewBreakerPort(inner, "test-trip")

	for i := 0; i < 3; i++ {
		if _, err := port.Invoke(context.Background(), modelport.Request{}); err == nil {
			t.Fatalf("attempt %d: expected an error", i)
		}
	}

	// The breaker should now be open; gobreaker.ErrOpenState is returned
	// without reaching the inner port, so the scripted port's responses
	// are not exhausted by this call.
	if _, err := port.Invoke(context.Background(), modelport.Request{}); err == nil {
		t.Fatal("expected circuit breaker to be open after 3 consecutive failures")
	}
}

func TestWithRetrySucceedsOnSecondAttempt(t *testing.T) {
	calls := 0
	resp, err := withRetry(context.Background(), 3, func() (modelport.Response, error) {
		calls++
		if calls == 1 {
			return modelport.Response{}, errors.New("transient")
		}
		return modelport.Response{Reasoning: "recovered"}, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if resp.Reasoning != "recovered" {
		t.Fatalf("Reasoning = %q, want recovered", resp.Reasoning)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestWithRetryStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withRetry(ctx, 3, func() (modelport.Response, error) {
		calls++
		return modelport.Response{}, errors.New("fails")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls > 1 {
		t.Fatalf("withRetry should stop promptly on cancellation, got %d calls", calls)
	}
}

func TestWithRetryExhaustsAfterMaxAttempts(t *testing.T) {
	failing := errors.New("persistent")
	calls := 0
	start := time.Now()
	_, err := withRetry(context.Background(), 3, func() (modelport.Response, error) {
		calls++
		return modelport.Response{}, failing
	})
	if !errors.Is(err, failing) {
		t.Fatalf("err = %v, want %v", err, failing)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if time.Since(start) < 200*time.Millisecond {
		t.Fatal("expected backoff delay between attempts")
	}
}
