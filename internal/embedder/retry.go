package embedder

import (
	"context"
	"errors"
	"time"
)

// backoff schedules repeat attempts for one upstream embedding call. Delay
// grows geometrically from initial up to ceiling.
type backoff struct {
	attempts int
	initial  time.Duration
	ceiling  time.Duration
	factor   float64
}

func defaultBackoff() backoff {
	return backoff{
		attempts: MaxRetries,
		initial:  time.Duration(InitialBackoffMs) * time.Millisecond,
		ceiling:  time.Duration(MaxBackoffMs) * time.Millisecond,
		factor:   BackoffMultiplier,
	}
}

// retryable reports whether another attempt could change the outcome.
// Rate limits and timeouts pass; a malformed request fails identically
// every time and is surfaced at once.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyText),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnsupportedModel),
		errors.Is(err, ErrBatchTooLarge):
		return false
	}
	return true
}

// withRetry runs fn until it succeeds, the error is not retryable, the
// attempt budget is spent, or the context ends. The sleep between attempts
// follows the backoff schedule and is interruptible.
func withRetry[T any](ctx context.Context, b backoff, fn func() (T, error)) (T, error) {
	var zero T
	delay := b.initial

	var lastErr error
	for attempt := 0; attempt < b.attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}
		if attempt == b.attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(time.Duration(float64(delay)*b.factor), b.ceiling)
	}
	return zero, lastErr
}
