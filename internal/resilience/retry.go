// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how often and how fast an operation is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls including the first one.
	MaxAttempts int
	// InitialInterval is the wait before the second attempt.
	InitialInterval time.Duration
	// MaxInterval caps the exponential growth.
	MaxInterval time.Duration
	// Retryable decides whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool
	// OnRetry is called before each wait with the failed attempt number (1-based).
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is done. The last error is returned unwrapped.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}

	attempt := 0
	op := func() (T, error) {
		attempt++
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(attempts)),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			p.OnRetry(attempt, err, wait)
		}))
	}

	res, err := backoff.Retry(ctx, op, opts...)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}
