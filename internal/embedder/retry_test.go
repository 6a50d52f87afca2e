package embedder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) backoff {
	return backoff{
		attempts: attempts,
		initial:  time.Microsecond,
		ceiling:  time.Millisecond,
		factor:   2.0,
	}
}

func TestWithRetryRecoversFromTransientError(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), fastBackoff(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnBadRequest(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), fastBackoff(3), func() (string, error) {
		calls++
		return "", ErrInvalidInput
	})

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, calls, "a malformed request must not be retried")
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	calls := 0
	boom := errors.New("still down")
	_, err := withRetry(context.Background(), fastBackoff(3), func() (string, error) {
		calls++
		return "", boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := withRetry(ctx, fastBackoff(5), func() (string, error) {
		cancel()
		return "", errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
