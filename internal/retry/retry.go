// Package retry runs an operation under a fixed-delay, bounded-attempt policy.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Policy describes how an operation is retried.
type Policy struct {
	// Name identifies the operation in log lines.
	Name string
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// Delay is the fixed pause between two attempts.
	Delay time.Duration
	// Retryable decides whether a failed attempt is worth repeating.
	// A nil predicate retries every error except those wrapped by Permanent.
	Retryable func(error) bool
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so that Do stops immediately and returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func (p Policy) retryable(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Do calls op until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. It returns the number of attempts made and the
// last error observed.
func (p Policy) Do(ctx context.Context, logger *zap.Logger, op func(ctx context.Context, attempt int) error) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := p.Delay
	if delay <= 0 {
		delay = time.Nanosecond
	}
	backoff := goretry.WithMaxRetries(uint64(maxAttempts-1), goretry.NewConstant(delay))

	attempt := 0
	var lastErr error
	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = unwrapPermanent(err)
		if !p.retryable(err) {
			logger.Warn("attempt failed, not retrying",
				zap.String("op", p.Name),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			return lastErr
		}
		logger.Warn("attempt failed",
			zap.String("op", p.Name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))
		return goretry.RetryableError(err)
	})
	if err == nil {
		return attempt, nil
	}
	if ctx.Err() != nil {
		return attempt, ctx.Err()
	}
	if lastErr != nil {
		return attempt, lastErr
	}
	return attempt, err
}

func unwrapPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}
