package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StatusError marks a non-2xx response. It is retryable.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// LinearRetryPolicy retries a bounded number of times, waiting attempt x base
// between attempts.
type LinearRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
}

// NewLinearRetryPolicy builds a policy. Non-positive values fall back to
// three attempts and a one second base.
func NewLinearRetryPolicy(maxAttempts int, baseDelay time.Duration) *LinearRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay < 0 {
		baseDelay = time.Second
	}
	return &LinearRetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// MaxAttempts returns the total number of attempts allowed.
func (p *LinearRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether the error returned by attempt (1-based) warrants another try.
func (p *LinearRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	// A per-attempt timeout surfaces as DeadlineExceeded and is retryable;
	// cancellation of the caller is not.
	return !errors.Is(err, context.Canceled)
}

// Backoff returns the wait before the attempt following attempt.
func (p *LinearRetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * p.baseDelay
}
