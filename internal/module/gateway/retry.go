package gateway

import (
	"errors"
	"time"
)

// RetryPolicy controls how initiation calls are retried. MaxAttempts
// counts the first call: 3 attempts means at most 2 retries.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	Retryable    func(error) bool
}

// DefaultRetryPolicy returns the production retry policy: 3 total
// attempts with exponential backoff starting at 500ms, doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
		Retryable:    IsTransient,
	}
}

// Delay returns the backoff before the given retry (1-based: Delay(1) is
// the pause after the first failed attempt).
func (p RetryPolicy) Delay(retry int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 1; i < retry; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// transientError marks failures worth retrying: connection errors,
// timeouts, and 5xx responses.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// IsTransient reports whether err is a transient transport failure.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
