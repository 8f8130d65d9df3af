package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// DefaultMaxAttempts is used when a Retrier has no attempt count.
const DefaultMaxAttempts = 3

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Retrier retries a task with exponential backoff.
type Retrier struct {
	MaxAttempts int
	Sleep       Sleeper
	Logger      *slog.Logger
}

// Backoff returns the wait after the given failed attempt: 2^attempt whole seconds.
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// Retry runs task up to maxAttempts times (DefaultMaxAttempts when zero or less).
// The error of the final attempt is returned unchanged.
func Retry(ctx context.Context, maxAttempts int, task func(ctx context.Context) error) error {
	return Retrier{MaxAttempts: maxAttempts}.Do(ctx, task)
}

// Do runs task with r's retry policy.
func (r Retrier) Do(ctx context.Context, task func(ctx context.Context) error) error {
	_, err := RetryValue(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, task(ctx)
	})
	return err
}

// RetryValue runs a value-returning task with r's retry policy.
func RetryValue[T any](ctx context.Context, r Retrier, task func(ctx context.Context) (T, error)) (T, error) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = task(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == attempts {
			break
		}

		wait := Backoff(attempt)
		if r.Logger != nil {
			r.Logger.Debug("retrying after failure", "attempt", attempt, "max_attempts", attempts, "wait", wait, "error", err)
		}
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			break
		}
	}
	return result, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
