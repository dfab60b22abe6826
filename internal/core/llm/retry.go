package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/platform/observability"
)

// RetryConfig configures retries of rate-limited or unavailable calls.
type RetryConfig struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: defaultRetryAttempts,
		MinWait:     defaultRetryMinWait,
		MaxWait:     defaultRetryMaxWait,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultRetryAttempts
	}

	if c.MinWait <= 0 {
		c.MinWait = defaultRetryMinWait
	}

	if c.MaxWait < c.MinWait {
		c.MaxWait = c.MinWait
	}

	return c
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.MinWait
	b.MaxInterval = c.MaxWait
	b.MaxElapsedTime = 0

	//nolint:gosec // MaxAttempts is normalized to be positive
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.MaxAttempts-1)), ctx)
}

// withRetry runs fn until it succeeds, fails permanently, or attempts run out.
// Only transient errors are retried. A rate limit that survives every attempt
// is reported as ErrQuotaExhausted.
func withRetry[T any](ctx context.Context, cfg RetryConfig, task TaskType, logger *zerolog.Logger, fn func(context.Context) (T, error)) (T, error) {
	cfg = cfg.normalized()

	var result T

	attempt := 0

	op := func() error {
		attempt++

		res, err := fn(ctx)
		if err == nil {
			result = res
			return nil
		}

		if !IsTransient(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, wait time.Duration) {
		observability.LLMRetries.WithLabelValues(string(task)).Inc()

		if logger != nil {
			logger.Warn().
				Err(err).
				Str(logKeyTask, string(task)).
				Int(logKeyAttempt, attempt).
				Dur("wait", wait).
				Msg("transient LLM failure, retrying")
		}
	}

	err := backoff.RetryNotify(op, cfg.backOff(ctx), notify)
	if err == nil {
		return result, nil
	}

	var zero T

	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return zero, errors.Join(err, ctxErr)
	}

	if errors.Is(err, apperrors.ErrRateLimited) {
		return zero, fmt.Errorf("%w after %d attempts: %w", apperrors.ErrQuotaExhausted, attempt, err)
	}

	return zero, err
}
