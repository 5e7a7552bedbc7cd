package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable marks a remote backend that could not be reached. A
	// probe whose cache is unavailable still runs; only the cache is skipped.
	ErrUnavailable = errors.New("probe cache unavailable")

	// errMissing reports an absent key from inside a retried operation.
	errMissing = errors.New("no cached probe")
)

// transientError marks a failure worth another attempt.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// transient wraps err so that [Backoff.Do] retries it.
func transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Backoff is the retry policy of a remote backend. Lookups sit in front of
// every interpreter probe, so the defaults give up quickly.
type Backoff struct {
	Attempts int           // total tries, default 3
	Delay    time.Duration // first pause, doubled after each try, default 50ms
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Delay <= 0 {
		b.Delay = 50 * time.Millisecond
	}
	return b
}

// Do runs fn until it succeeds, fails with a non-transient error, the
// attempts run out or ctx ends.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	b = b.withDefaults()
	delay := b.Delay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !isTransient(err) || attempt == b.Attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}
