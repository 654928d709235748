// Package retry re-issues operations that fail with transient errors.
//
// Source reads use it to ride out interrupted system calls (EINTR) and
// non-blocking descriptors that are momentarily empty (EAGAIN). Every other
// failure is returned to the caller unchanged on the first attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

// Config controls the retry schedule.
type Config struct {
	// MaxAttempts is the number of times fn is called at most. Must be > 0.
	MaxAttempts int
	// InitialBackoff is the wait before the second attempt. Each further
	// attempt doubles it.
	InitialBackoff time.Duration
	// MaxBackoff caps a single wait. Zero means no cap.
	MaxBackoff time.Duration
}

// ReadConfig is the schedule used for source reads.
func ReadConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	}
}

// ShouldRetryFunc reports whether err is worth another attempt. A nil
// ShouldRetryFunc retries every error.
type ShouldRetryFunc func(error) bool

// Transient reports whether err is an interrupted or would-block read.
func Transient(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// backoff is InitialBackoff * 2^(attempt-1), capped at MaxBackoff.
func backoff(cfg Config, attempt int) time.Duration {
	d := cfg.InitialBackoff << (attempt - 1)
	if d < cfg.InitialBackoff || (cfg.MaxBackoff > 0 && d > cfg.MaxBackoff) {
		return cfg.MaxBackoff
	}
	return d
}
