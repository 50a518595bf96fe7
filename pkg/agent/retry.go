package agent

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy controls retry behavior for transient failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts (first try included).
	MaxAttempts int

	// InitialDelay is the sleep after the first failed attempt.
	InitialDelay time.Duration

	// MaxDelay caps the exponentially growing sleep.
	MaxDelay time.Duration

	// ExponentialBase multiplies the delay after each failed attempt.
	ExponentialBase float64

	// Classify reports whether an error is retryable. Nil treats every
	// error as retryable.
	Classify func(error) bool
}

// DefaultRetryPolicy matches the production retry budget for LLM calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        10 * time.Second,
		ExponentialBase: 2.0,
	}
}

// Retry runs fn up to policy.MaxAttempts times with exponential backoff.
// The sleep between attempts honors ctx cancellation; a cancelled context
// surfaces ctx.Err() instead of the last attempt's error. The last
// attempt's error is returned unwrapped so callers can errors.Is it.
func Retry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, functionName string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		logger.Info("Attempting operation",
			"function_name", functionName,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts)

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retry",
					"function_name", functionName,
					"attempt", attempt)
			}
			return result, nil
		}
		lastErr = err

		if policy.Classify != nil && !policy.Classify(err) {
			logger.Error("Non-retryable exception occurred",
				"function_name", functionName,
				"error", err)
			return zero, err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		logger.Warn("Operation failed, will retry",
			"function_name", functionName,
			"attempt", attempt,
			"error", err,
			"retry_delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * policy.ExponentialBase)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	logger.Error("Operation failed after all retry attempts",
		"function_name", functionName,
		"max_attempts", policy.MaxAttempts,
		"error", lastErr)
	return zero, lastErr
}
