package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/codefionn/krim/internal/consts"
)

// RetryPolicy bounds how often and how patiently a model call is retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter is the randomization factor applied to each delay.
	Jitter float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: consts.RetryMaxAttempts,
		BaseDelay:  consts.RetryBaseDelay,
		MaxDelay:   consts.RetryMaxDelay,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

// RetryNotify is told about every failed attempt that will be retried.
type RetryNotify func(err error, attempt int, wait time.Duration)

// Retry runs op until it succeeds, fails with a non-retriable error, or the
// policy is exhausted. The last error is returned on exhaustion. A canceled
// context stops the wait between attempts.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(context.Context) (T, error), notify RetryNotify) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && !IsRetriable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, policy, func(err error, wait time.Duration) {
		if notify != nil {
			notify(err, attempt, wait)
		}
	})
}

// IsRetriable classifies transient failures: timeouts, dropped or refused
// connections, rate limiting (429) and server errors (5xx). Everything else,
// including cancellation and client errors, is permanent.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return false
}
