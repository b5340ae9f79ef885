// Package retry provides a capped exponential backoff wrapper for calls
// against flaky remote APIs.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const (
	// DefaultAttempts is the default number of tries including the first.
	DefaultAttempts = 3
	// baseDelay is the backoff before the second attempt; it doubles per retry.
	baseDelay = 2 * time.Second
	// maxDelay caps the backoff between attempts.
	maxDelay = 32 * time.Second
)

// Policy configures retry behavior.
type Policy struct {
	// Attempts is the total number of tries. Values below 1 mean DefaultAttempts.
	Attempts int
	// Retryable decides whether an error is worth retrying. Nil retries everything.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the policy is exhausted, or the context is
// canceled. Backoff doubles per attempt (2s, 4s, 8s, ...) capped at 32s,
// with up to 10% jitter to avoid thundering herds.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, err
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}
	}
	return zero, fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

func backoffDelay(attempt int) time.Duration {
	delay := baseDelay << uint(attempt-1)
	if delay > maxDelay {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 10))
	return delay + jitter
}
