// Package retry re-runs operations that fail with transient errors.
//
// Storage backends use it to ping their server on connect, so a store
// started alongside its database waits for it to come up:
//
//	err := retry.Do(ctx, func(attempt int) error {
//	    if err := client.Ping(ctx).Err(); err != nil {
//	        return retry.Transient(err)
//	    }
//	    return nil
//	})
//
// Errors not marked with [Transient] end the loop immediately.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds how often and how slowly an operation is retried.
type Policy struct {
	Attempts int           // total tries, at least 1
	Delay    time.Duration // wait before the second try; doubles afterwards
	MaxDelay time.Duration // cap on the wait, 0 for none
}

// Default is the policy used by [Do].
var Default = Policy{Attempts: 3, Delay: time.Second, MaxDelay: 8 * time.Second}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as worth another attempt. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with [Transient].
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// Do runs fn under the [Default] policy.
func Do(ctx context.Context, fn func(attempt int) error) error {
	return Default.Do(ctx, fn)
}

// Do calls fn until it succeeds, returns a non-transient error, or the
// attempts run out. The last error is returned with its transient mark
// removed. Cancelling ctx between attempts returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	delay := p.Delay
	attempts := max(p.Attempts, 1)
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		var t *transientError
		if !errors.As(err, &t) {
			return err
		}
		if attempt >= attempts {
			return t.err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
