// Package ratelimit bounds concurrent outbound calls and retries fallible operations
// with exponential backoff.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds limiter settings.
type Config struct {
	// MaxConcurrent is the number of tasks allowed to run at once. Zero or less means unlimited.
	MaxConcurrent int
	// MinTime is the minimum gap between two task starts.
	MinTime time.Duration
}

// Stats is a snapshot of limiter occupancy.
type Stats struct {
	Running int
	Queued  int
}

// Limiter admits tasks in submission order. Tasks beyond MaxConcurrent wait for a
// slot, and starts are spaced at least MinTime apart.
type Limiter struct {
	name    string
	slots   *semaphore.Weighted // nil when unlimited
	spacing *rate.Limiter       // nil when MinTime is zero

	mu      sync.Mutex
	running int
	queued  int
}

// NewLimiter creates a limiter. The name is only used for logging and errors.
func NewLimiter(name string, cfg Config) *Limiter {
	l := &Limiter{name: name}
	if cfg.MaxConcurrent > 0 {
		l.slots = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	if cfg.MinTime > 0 {
		l.spacing = rate.NewLimiter(rate.Every(cfg.MinTime), 1)
	}
	return l
}

// Name returns the limiter name.
func (l *Limiter) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}

// Schedule waits for a slot, then runs task. A nil limiter runs the task immediately.
// The slot is released when task returns.
func (l *Limiter) Schedule(ctx context.Context, task func(ctx context.Context) error) error {
	if l == nil {
		return task(ctx)
	}

	l.adjust(0, 1)
	if l.slots != nil {
		if err := l.slots.Acquire(ctx, 1); err != nil {
			l.adjust(0, -1)
			return err
		}
		defer l.slots.Release(1)
	}
	if l.spacing != nil {
		if err := l.spacing.Wait(ctx); err != nil {
			l.adjust(0, -1)
			return err
		}
	}
	l.adjust(1, -1)
	defer l.adjust(-1, 0)

	return task(ctx)
}

// Stats returns the current number of running and queued tasks.
func (l *Limiter) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{Running: l.running, Queued: l.queued}
}

func (l *Limiter) adjust(running, queued int) {
	l.mu.Lock()
	l.running += running
	l.queued += queued
	l.mu.Unlock()
}

// Do schedules a value-returning task on l.
func Do[T any](ctx context.Context, l *Limiter, task func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := l.Schedule(ctx, func(ctx context.Context) error {
		var err error
		result, err = task(ctx)
		return err
	})
	return result, err
}

// Call retries task with r, scheduling each attempt on l so that backoff waits
// do not hold a slot.
func Call[T any](ctx context.Context, l *Limiter, r Retrier, task func(ctx context.Context) (T, error)) (T, error) {
	return RetryValue(ctx, r, func(ctx context.Context) (T, error) {
		return Do(ctx, l, task)
	})
}
