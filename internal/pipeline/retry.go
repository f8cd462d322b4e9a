package pipeline

import (
	"context"
	"time"
)

// RetryPredicate reports whether an error is worth retrying. A nil predicate
// retries every error.
type RetryPredicate func(error) bool

// WithRetry wraps fn with bounded retries and pure exponential backoff: the
// wrapped function attempts fn up to maxRetries+1 times, sleeping
// baseDelay*2^k between attempt k and k+1. The last error is returned when all
// attempts are exhausted or when retryIf classifies an error as non-transient.
// The backoff sleep honours context cancellation.
func WithRetry(fn StageFunc, maxRetries int, baseDelay time.Duration, retryIf RetryPredicate) StageFunc {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	return func(ctx context.Context, input string) (string, error) {
		var lastErr error
		for attempt := 0; attempt <= maxRetries; attempt++ {
			out, err := fn(ctx, input)
			if err == nil {
				return out, nil
			}
			lastErr = err

			if attempt == maxRetries {
				break
			}
			if retryIf != nil && !retryIf(err) {
				break
			}

			delay := baseDelay << uint(attempt)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}
		return "", lastErr
	}
}
