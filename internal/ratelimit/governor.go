// Package ratelimit governs outbound Asana API calls: it retries
// transient failures with capped exponential backoff, honors the server's
// Retry-After header on 429 responses, and records recent 429s so that
// ShouldSlowDown can report when they arrive in quick succession. The
// Governor itself inserts no pacing delay on that signal.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryAfterError is returned by an API collaborator when the server sends
// a 429 with an explicit Retry-After delay. Governor sleeps for Delay
// before the next attempt; the regular backoff interval is then added on
// top of it. After is the underlying cause.
type RetryAfterError struct {
	After error
	Delay time.Duration
}

func (e *RetryAfterError) Error() string { return "rate limited: retry after " + e.Delay.String() }
func (e *RetryAfterError) Unwrap() error { return e.After }

const maxRetries = 3

// Governor paces and retries calls against the Asana API.
type Governor struct {
	recentThrottles []time.Time
	logger          *slog.Logger
}

// New returns a Governor with no throttling history.
func New() *Governor { return &Governor{logger: slog.Default()} }

// SetLogger overrides the default logger (slog.Default()) for this Governor.
func (g *Governor) SetLogger(l *slog.Logger) {
	if l != nil {
		g.logger = l
	}
}

// Do runs op, retrying up to maxRetries times with exponential backoff
// (1s, 2s, 4s) on transient failures, and waiting at least
// RetryAfterError's delay when the server specifies one. Non-retryable errors (anything not
// wrapped as retryable) stop the retry loop immediately.
func (g *Governor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	bo := capped3Backoff()

	return backoff.Retry(func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}

		var rae *RetryAfterError
		if errors.As(err, &rae) {
			g.recordThrottle()
			g.logger.Warn("rate limited", "attempt", attempt, "retry_after", rae.Delay)
			if attempt > maxRetries {
				return backoff.Permanent(err)
			}
			select {
			case <-time.After(rae.Delay):
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		if attempt > maxRetries {
			g.logger.Warn("giving up after max retries", "attempt", attempt, "error", err)
			return backoff.Permanent(err)
		}
		g.logger.Debug("retrying transient failure", "attempt", attempt, "error", err)
		return err
	}, backoff.WithContext(bo, ctx))
}

// capped3Backoff returns 1s, 2s, 4s then gives up (beyond maxRetries the
// caller already stops the loop via backoff.Permanent, this just bounds
// runaway retries if that check is ever skipped).
func capped3Backoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.MaxElapsedTime = 15 * time.Second
	return bo
}

// recordThrottle tracks a 429 for backpressure pacing, discarding entries
// older than one minute.
func (g *Governor) recordThrottle() {
	now := time.Now()
	cutoff := now.Add(-time.Minute)
	kept := g.recentThrottles[:0]
	for _, t := range g.recentThrottles {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.recentThrottles = append(kept, now)
}

// ShouldSlowDown reports whether recent 429 frequency warrants widening the
// pacing gap between outbound requests ahead of hitting the limit again.
func (g *Governor) ShouldSlowDown() bool {
	return len(g.recentThrottles) >= 3
}

// retryableError marks a transient failure (network blip, 5xx) eligible
// for the governor's backoff loop; anything else is treated as permanent.
type retryableError struct{ cause error }

func (e *retryableError) Error() string { return e.cause.Error() }
func (e *retryableError) Unwrap() error { return e.cause }

// Retryable wraps err so Governor.Do will retry it.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{cause: err}
}

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
