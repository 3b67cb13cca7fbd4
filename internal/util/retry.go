package util

import (
	"context"
	"errors"
	"time"
)

// Backoff paces Retry: up to Attempts calls, waiting Base after the first
// failure and doubling the wait each time, capped at Max when Max > 0.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Retry returns the wrapped error
// as soon as fn returns it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error or b.Attempts
// calls have failed, and returns the last error. Waiting between calls stops
// early with ctx.Err() when ctx is done.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	delay := b.Base
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= b.Attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
}
