// CLAUDE:SUMMARY Bounded retry with jittered exponential backoff and a typed exhaustion error.
// Package retry wraps calls to external services (embedding, OCR, language
// model) with bounded retries and jittered exponential backoff.
//
// Retries respect context cancellation between attempts and never loop
// indefinitely: after the attempt budget is spent the last error is returned
// wrapped in *Exhausted so callers can distinguish "gave up" from a single
// failure.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Policy controls the retry behaviour.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1 (no retry). Default: 3.
	MaxAttempts int

	// BaseBackoff is the wait before the first retry, doubled each attempt.
	// Default: 200ms.
	BaseBackoff time.Duration

	// MaxBackoff caps the per-attempt wait. Default: 5s.
	MaxBackoff time.Duration

	// Jitter adds up to this fraction of the backoff as random extra wait
	// (0.2 = up to +20%). Default: 0.2.
	Jitter float64

	// Logger records retry attempts. Nil means silent retries.
	Logger *slog.Logger
}

func (p Policy) defaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 3
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = 200 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 5 * time.Second
	}
	if p.Jitter <= 0 {
		p.Jitter = 0.2
	}
	return p
}

// Exhausted is returned once every attempt has failed.
type Exhausted struct {
	Attempts int
	Last     error
}

func (e *Exhausted) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Last)
}

func (e *Exhausted) Unwrap() error { return e.Last }

// Permanent marks an error as not worth retrying. Do returns it immediately.
type Permanent struct {
	Err error
}

func (e *Permanent) Error() string { return e.Err.Error() }
func (e *Permanent) Unwrap() error { return e.Err }

// Abort wraps err so Do stops retrying and returns it as-is.
func Abort(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// Do calls fn until it succeeds, the policy is exhausted, or ctx is done.
// Context cancellation between attempts returns the last error observed.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	p = p.defaults()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		wait := backoff(p, attempt)
		if p.Logger != nil {
			p.Logger.WarnContext(ctx, "retrying call",
				"op", op,
				"attempt", attempt+1,
				"max_attempts", p.MaxAttempts,
				"backoff_ms", wait.Milliseconds(),
				"error", err)
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(wait):
		}
	}
	return &Exhausted{Attempts: p.MaxAttempts, Last: lastErr}
}

func backoff(p Policy, attempt int) time.Duration {
	wait := p.BaseBackoff * (1 << uint(attempt))
	if wait > p.MaxBackoff {
		wait = p.MaxBackoff
	}
	wait += time.Duration(rand.Float64() * p.Jitter * float64(wait))
	return wait
}
