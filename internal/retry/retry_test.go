package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), Fixed(3, time.Millisecond), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := WithRetry(context.Background(), Fixed(2, time.Millisecond), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped boom, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetry_StatusCodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond

	tests := []struct {
		status    int
		wantCalls int
	}{
		{http.StatusNotFound, 1},
		{http.StatusUnauthorized, 1},
		{http.StatusTooManyRequests, cfg.MaxAttempts},
		{http.StatusServiceUnavailable, cfg.MaxAttempts},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), cfg, func() error {
				calls++
				return fmt.Errorf("request: %w", NewHTTPError(tt.status, http.StatusText(tt.status), ""))
			})
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
			if StatusCode(err) != tt.status {
				t.Errorf("expected status %d to survive wrapping, got %d", tt.status, StatusCode(err))
			}
		})
	}
}

func TestWithRetry_Permanent(t *testing.T) {
	calls := 0
	boom := errors.New("no such shipment")
	err := WithRetry(context.Background(), Fixed(5, time.Millisecond), func() error {
		calls++
		return Permanent(boom)
	})
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
	if err != boom {
		t.Errorf("expected the unwrapped error, got %v", err)
	}
}

func TestWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, Fixed(3, time.Hour), func() error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := calculateBackoff(i, cfg); got != w {
			t.Errorf("attempt %d: got %v, want %v", i, got, w)
		}
	}
	if got := calculateBackoff(4, Fixed(5, 250*time.Millisecond)); got != 250*time.Millisecond {
		t.Errorf("fixed backoff drifted: %v", got)
	}
}
