// Package retry runs an operation several times with exponential backoff
// between attempts.
//
//	err := retry.Do(ctx, retry.DefaultConfig, func() error {
//	    return store.Query()
//	})
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Config controls retry behaviour.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 mean a single attempt.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt; each further
	// wait doubles, capped at MaxDelay.
	InitialDelay time.Duration
	// MaxDelay caps the per-attempt wait.
	MaxDelay time.Duration
}

// DefaultConfig suits short-lived store and network calls.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
}

// Do calls fn until it succeeds, the attempts are exhausted, or ctx is
// cancelled. The zero Config runs fn exactly once. The error of the last
// attempt is returned, joined with the context error on cancellation.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.InitialDelay
	if delay <= 0 {
		delay = DefaultConfig.InitialDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultConfig.MaxDelay
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt >= attempts {
			return lastErr
		}

		slog.Debug("retry: attempt failed",
			"attempt", attempt, "max", attempts, "err", lastErr, "delay", delay)

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
