package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	permanent := errors.New("permanent")
	flaky := &TransientError{Err: errors.New("connection reset")}

	tests := []struct {
		name      string
		failures  []error // returned in order, then success
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{"first try", nil, 3, 1, nil},
		{"recovers", []error{flaky, flaky}, 3, 3, nil},
		{"gives up", []error{flaky, flaky, flaky}, 3, 3, flaky},
		{"permanent stops", []error{permanent, flaky}, 3, 1, permanent},
		{"zero attempts runs once", []error{flaky}, 0, 1, flaky},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.attempts, time.Millisecond, func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return &TransientError{Err: errors.New("timeout")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestIsTransient(t *testing.T) {
	base := errors.New("eof")
	wrapped := errors.Join(errors.New("fetch origin"), &TransientError{Err: base})
	if !IsTransient(wrapped) {
		t.Error("IsTransient() should see through wrapping")
	}
	if !errors.Is(wrapped, base) {
		t.Error("TransientError should unwrap to its cause")
	}
	if IsTransient(ErrUnknownRef) {
		t.Error("ErrUnknownRef is not transient")
	}
}
