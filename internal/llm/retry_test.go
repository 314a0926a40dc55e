package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"
)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &APIError{Provider: "claude", StatusCode: 429, Err: errors.New("slow down")}, true},
		{"server error", &APIError{Provider: "openai", StatusCode: 503, Err: errors.New("overloaded")}, true},
		{"bad request", &APIError{Provider: "openai", StatusCode: 400, Err: errors.New("bad")}, false},
		{"unauthorized", &APIError{Provider: "claude", StatusCode: 401, Err: errors.New("key")}, false},
		{"wrapped 5xx", fmt.Errorf("call: %w", &APIError{StatusCode: 500, Err: errors.New("x")}), true},
		{"net timeout", timeoutErr{}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"validation", errors.New("invalid schema"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetriable(tt.err); got != tt.want {
				t.Errorf("IsRetriable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var notified []int
	got, err := Retry(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &APIError{StatusCode: 429, Err: errors.New("rate")}
		}
		return "ok", nil
	}, func(_ error, attempt int, _ time.Duration) {
		notified = append(notified, attempt)
	})
	if err != nil || got != "ok" {
		t.Fatalf("Retry = %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(notified) != 2 {
		t.Errorf("notify called %d times, want 2", len(notified))
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	perm := &APIError{StatusCode: 400, Err: errors.New("bad request")}
	_, err := Retry(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		return 0, perm
	}, nil)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, perm) {
		t.Errorf("err = %v, want the permanent error", err)
	}
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(2), func(context.Context) (int, error) {
		calls++
		return 0, &APIError{StatusCode: 500, Err: fmt.Errorf("attempt %d", calls)}
	}, nil)
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
	if err == nil || StatusCode(err) != 500 || !containsAttempt(err, 3) {
		t.Errorf("err = %v, want last attempt error", err)
	}
}

func containsAttempt(err error, n int) bool {
	return err != nil && errors.Unwrap(err) != nil && errors.Unwrap(err).Error() == fmt.Sprintf("attempt %d", n)
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, p, func(context.Context) (int, error) {
			calls++
			return 0, &APIError{StatusCode: 503, Err: errors.New("busy")}
		}, nil)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Errorf("expected an error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not return after cancellation")
	}
}

func TestRetryZeroRetries(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(0), func(context.Context) (int, error) {
		calls++
		return 0, &APIError{StatusCode: 502, Err: errors.New("bad gateway")}
	}, nil)
	if calls != 1 || err == nil {
		t.Errorf("calls = %d, err = %v", calls, err)
	}
}
