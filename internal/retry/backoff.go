// Package retry provides the exponential backoff used between connect
// attempts and the breaker that sheds MQTT publishes while the broker
// is unreachable.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError wraps an error to signal that retrying will not help.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.  [Backoff.Do] returns the inner
// error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff retries an operation with exponentially growing pauses.
type Backoff struct {
	// Base is the pause after the first failure (default 500ms).
	Base time.Duration
	// Max caps a single pause (default 10s).
	Max time.Duration
	// Multiplier grows the pause each attempt (default 2.0).
	Multiplier float64
	// Attempts is the total number of tries including the first.  Zero
	// retries until the context is cancelled.
	Attempts int
	// Jitter adds ±25% randomisation to each pause.
	Jitter bool

	// Retryable filters which errors are retried.  Nil retries every
	// error that is not [Permanent].
	Retryable func(error) bool
	// OnRetry is called before each pause.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Delay returns the pause after the given 1-based failed attempt,
// without jitter.
func (b *Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	limit := b.Max
	if limit <= 0 {
		limit = 10 * time.Second
	}
	mult := b.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := float64(base) * math.Pow(mult, float64(attempt-1))
	if d > float64(limit) {
		return limit
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a permanent or non-retryable
// error, runs out of attempts, or ctx is cancelled.  attempt is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if b.Retryable != nil && !b.Retryable(err) {
			return err
		}
		if b.Attempts > 0 && attempt >= b.Attempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		wait := b.Delay(attempt)
		if b.Jitter {
			wait = addJitter(wait)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// addJitter adds ±25% randomisation to a duration.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	return time.Duration(math.Max(float64(d)+delta, float64(time.Millisecond)))
}
