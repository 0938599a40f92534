package crawler

import (
	"context"
	"fmt"
	"time"
)

// AttemptFunc performs one try of an outbound call. The context it receives
// carries the per-attempt deadline.
type AttemptFunc func(ctx context.Context) (FetchResponse, error)

// FetchWithRetry runs attempt until it succeeds or policy gives up. Each try is
// bounded by timeout (zero means only ctx bounds it) and the pause between tries
// grows linearly with the attempt number. On failure the last error is returned
// wrapped, and the response still reports how many attempts were made.
// Duration on the returned response covers every attempt and backoff.
func FetchWithRetry(
	ctx context.Context,
	policy *LinearRetryPolicy,
	timeout time.Duration,
	attempt AttemptFunc,
) (FetchResponse, error) {
	if policy == nil {
		policy = NewLinearRetryPolicy(0, -1)
	}
	start := time.Now()
	for n := 1; ; n++ {
		resp, err := runAttempt(ctx, timeout, attempt)
		if err == nil {
			resp.Attempts = n
			resp.Duration = time.Since(start)
			return resp, nil
		}
		failed := FetchResponse{Attempts: n, Duration: time.Since(start)}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return failed, fmt.Errorf("fetch aborted after %d attempts: %w", n, ctxErr)
		}
		if !policy.ShouldRetry(err, n) {
			return failed, fmt.Errorf("fetch failed after %d attempts: %w", n, err)
		}
		if err := sleep(ctx, policy.Backoff(n)); err != nil {
			failed.Duration = time.Since(start)
			return failed, fmt.Errorf("fetch backoff interrupted: %w", err)
		}
	}
}

func runAttempt(ctx context.Context, timeout time.Duration, attempt AttemptFunc) (FetchResponse, error) {
	if timeout <= 0 {
		return attempt(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return attempt(attemptCtx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("sleep interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
