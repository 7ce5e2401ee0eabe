package tourimport_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

func fastRetry() tourimport.RetryConfig {
	return tourimport.RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := tourimport.Retry(context.Background(), fastRetry(), tourimport.Retryable, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsAttemptBudget(t *testing.T) {
	attempts := 0
	sentinel := errors.New("still broken")
	err := tourimport.Retry(context.Background(), fastRetry(), tourimport.Retryable, func() error {
		attempts++
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := tourimport.Retry(context.Background(), fastRetry(), tourimport.Retryable, func() error {
		attempts++
		return fmt.Errorf("%w: https://example.com/gone.jpg", tourimport.ErrNotFoundAtSource)
	})

	assert.ErrorIs(t, err, tourimport.ErrNotFoundAtSource)
	assert.Equal(t, 1, attempts, "a source answering not-found is asked exactly once")
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := tourimport.Retry(ctx, fastRetry(), tourimport.Retryable, func() error {
		attempts++
		cancel()
		return errors.New("transient")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryable(t *testing.T) {
	assert.False(t, tourimport.Retryable(tourimport.ErrNotFoundAtSource))
	assert.False(t, tourimport.Retryable(tourimport.ErrUnsupportedImage))
	assert.False(t, tourimport.Retryable(tourimport.ErrImageTooLarge))
	assert.True(t, tourimport.Retryable(errors.New("connection reset")))
	assert.True(t, tourimport.Retryable(&tourimport.FetchError{URL: "https://x", StatusCode: 503}))
}
