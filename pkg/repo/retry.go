package repo

import (
	"context"
	"errors"
	"time"
)

// TransientError marks a failure that may succeed when repeated, such as a
// dropped connection during fetch. [Retry] only repeats errors wrapped in it.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Retry runs fn up to attempts times, doubling delay after each transient
// failure. Other errors return immediately, as does ctx.Err() once ctx is
// done.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsTransient(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.As(err, new(*TransientError))
}
