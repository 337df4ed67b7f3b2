// Package resilience retries flaky remote calls with growing backoff.
package resilience

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// RetryConfig controls retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// Backoff is the delay before the first retry; the n-th retry waits
	// n*Backoff. Default: 1s.
	Backoff time.Duration

	// ShouldRetry overrides the default IsTransient check.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt that
	// just failed (1-based) and its error.
	OnRetry func(attempt int, err error)

	// Clock drives the sleeps. Defaults to the real clock.
	Clock clockwork.Clock
}

// LinearRetry returns the policy used for post-source paging: attempts
// spaced by backoff, 2*backoff, 3*backoff and so on.
func LinearRetry(attempts int, backoff time.Duration) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		Backoff:     backoff,
	}
}

// Do executes fn until it succeeds, returns a non-retryable error, the
// attempt budget is spent or ctx is done. The last error is returned.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that produce a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || IsPermanent(err) || !shouldRetry(err) {
			return zero, lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-cfg.Clock.After(Delay(attempt, cfg)):
		}
	}
	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return cfg
}

// Delay returns the wait after the given failed attempt (1-based).
func Delay(attempt int, cfg RetryConfig) time.Duration {
	cfg = applyDefaults(cfg)
	return cfg.Backoff * time.Duration(attempt)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
