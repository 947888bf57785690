package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy configures RetryWithBackoff
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration // base; attempt n waits n*n*Backoff
	Retryable  func(error) bool
}

// RetryWithBackoff retries fn up to MaxRetries times with quadratic backoff.
// Errors rejected by Retryable are returned immediately.
func RetryWithBackoff(ctx context.Context, policy RetryPolicy, fn func() error, logger *Logger) error {
	attempts := policy.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * policy.Backoff
			logger.Warn("Retrying (attempt %d/%d) after %v...", attempt+1, attempts, backoff)
			if err := Sleep(ctx, backoff); err != nil {
				return fmt.Errorf("retry aborted: %w", lastErr)
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if policy.Retryable != nil && !policy.Retryable(err) {
			return err
		}
		logger.Debug("Attempt %d failed: %v", attempt+1, err)
	}
	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("all %d attempts failed, last error: %w", attempts, lastErr)
}
