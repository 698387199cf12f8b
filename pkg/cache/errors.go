package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBackend wraps failures of a remote cache backend.
var ErrBackend = errors.New("cache backend error")

// backendErr tags a backend failure with the operation that hit it.
func backendErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrBackend, op, err)
}

const pingAttempts = 3

// pingDelay is the wait before the second ping; it doubles after each failure.
var pingDelay = time.Second

// waitReady pings a freshly dialled backend until it answers. Servers that
// are still starting (common under docker compose) get a few attempts;
// cancellation of ctx ends the wait at once.
func waitReady(ctx context.Context, ping func(context.Context) error) error {
	delay := pingDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == pingAttempts {
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
