package tourimport

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig parameterizes the retry-with-backoff combinator.
type RetryConfig struct {
	// MaxAttempts is the total attempt count including the first try.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig matches the migration defaults: three attempts with
// exponential backoff starting at 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Retryable reports whether an error is worth retrying. A "not found"
// answer from the source is a legitimate absence, not a failure, so it
// is permanent; so are corrupt images and derivation failures.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNotFoundAtSource),
		errors.Is(err, ErrUnsupportedImage),
		errors.Is(err, ErrImageTooLarge),
		errors.Is(err, ErrMissingIdentity):
		return false
	}
	return true
}

// Retry runs op with exponential backoff until it succeeds, the attempt
// budget is exhausted, the predicate declares the error permanent, or
// ctx is cancelled. A nil predicate retries everything.
func Retry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, op func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * time.Second
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.MaxAttempts-1)), ctx)
	return backoff.Retry(wrapped, policy)
}
