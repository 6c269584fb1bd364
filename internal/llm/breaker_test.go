package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"resumepilot/internal/llm/transport"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/googleapi"
)

func TestBreakerCompleterOpensAndFailsFast(t *testing.T) {
	inner := &stubClient{err: errors.New("boom")}
	b := NewBreakerCompleter("groq", inner, BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      3,
		FailureThreshold: 0.5,
	}, nil)

	for i := 0; i < 3; i++ {
		if _, err := b.Complete(context.Background(), CompletionRequest{}); err == nil {
			t.Fatal("expected inner error")
		}
	}
	if b.IsHealthy() {
		t.Fatalf("breaker should be open, state %s", b.State())
	}

	_, err := b.Complete(context.Background(), CompletionRequest{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open-state error, got %v", err)
	}
	if inner.calls.Load() != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls.Load())
	}
	if !IsTransient(err) {
		t.Error("open breaker should be reported as transient")
	}
}

func TestBreakerCompleterStats(t *testing.T) {
	b := NewBreakerCompleter("gemini", &stubClient{text: "ok"}, BreakerSettings{MinRequests: 1, FailureThreshold: 1}, nil)
	if _, err := b.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatal(err)
	}

	stats := b.Stats()
	if stats["state"] != "closed" || stats["total_successes"] != uint32(1) {
		t.Errorf("unexpected stats %v", stats)
	}

	p := Provider{Name: "gemini", client: b}
	if p.Stats()["enabled"] != true {
		t.Error("provider should expose breaker stats")
	}
	if unwrapClient(b) != Completer(b.inner) {
		t.Error("unwrapClient should reach the guarded client")
	}
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := NewBreakerCompleter("openai", CompleterFunc(func(ctx context.Context, _ CompletionRequest) (Completion, error) {
		return Completion{}, context.Canceled
	}), BreakerSettings{MinRequests: 1, FailureThreshold: 0.1, Timeout: time.Minute}, nil)

	for i := 0; i < 5; i++ {
		_, _ = b.Complete(context.Background(), CompletionRequest{})
	}
	if !b.IsHealthy() {
		t.Error("cancellations must not trip the breaker")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("invalid prompt"), false},
		{"rate limited", &transport.StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"unauthorized", &transport.StatusError{StatusCode: http.StatusUnauthorized}, false},
		{"wrapped 503", fmt.Errorf("call: %w", &transport.StatusError{StatusCode: http.StatusServiceUnavailable}), true},
		{"google 500", &googleapi.Error{Code: http.StatusInternalServerError}, true},
		{"google 400", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
