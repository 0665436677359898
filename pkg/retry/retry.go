package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "knbackup/pkg/errors"
	"knbackup/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying.
// ctx is bounded by Config.AttemptTimeout when set.
type Operation func(ctx context.Context) error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// AttemptTimeout bounds each attempt (0 means no per-attempt bound)
	AttemptTimeout time.Duration
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultRetryIf retries transient typed errors and untyped errors, never
// cancellation
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}
	return true
}

// RetryAll retries every error except cancellation
func RetryAll(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Do executes op until it succeeds, the attempts run out, RetryIf rejects the
// error, or ctx is done. No delay follows the final attempt. A nil cfg runs
// op once.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = &Config{MaxAttempts: 1}
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = &ConstantBackoff{}
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := runAttempt(ctx, op, cfg.AttemptTimeout)
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !retryIf(err) {
			if cfg.Logger != nil {
				cfg.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return err
		}

		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			if cfg.Logger != nil {
				cfg.Logger.WarnWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		delay := backoff.NextDelay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.DebugWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": cfg.MaxAttempts,
			})
		}

		if err := Wait(ctx, delay); err != nil {
			return err
		}
	}
}

// runAttempt runs op under an optional per-attempt deadline. An attempt that
// hits its own deadline is reported as a network timeout so it stays
// retryable.
func runAttempt(ctx context.Context, op Operation, timeout time.Duration) error {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := op(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrorTypeNetwork, err, "attempt timed out after %s", timeout)
	}
	return err
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)

	return result, err
}
