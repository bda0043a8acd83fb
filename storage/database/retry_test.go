package database

import (
	"context"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"wrapped busy", errors.Wrap(sqlite3.Error{Code: sqlite3.ErrBusy}, "inserting"), true},
		{"locked message from another driver", errors.New("database is locked"), true},
		{"plain error", errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestWithRetry(t *testing.T) {
	fast := retryProfile{maxAttempts: 3, delay: time.Millisecond, factor: 1.5, maxDelay: 5 * time.Millisecond}
	busy := sqlite3.Error{Code: sqlite3.ErrBusy}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		var calls int
		err := withRetry(context.Background(), fast, func() error {
			calls++
			if calls < 3 {
				return busy
			}
			return nil
		})
		if err != nil {
			t.Errorf("withRetry() = %v; want nil", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d; want 3", calls)
		}
	})

	t.Run("exhausted retries surface ErrBusy", func(t *testing.T) {
		var calls int
		err := withRetry(context.Background(), fast, func() error {
			calls++
			return busy
		})
		if !IsBusy(err) {
			t.Errorf("withRetry() = %v; want ErrBusy", err)
		}
		if calls != fast.maxAttempts {
			t.Errorf("calls = %d; want %d", calls, fast.maxAttempts)
		}
	})

	t.Run("non-transient errors do not retry", func(t *testing.T) {
		var calls int
		wantErr := errors.New("syntax error")
		err := withRetry(context.Background(), fast, func() error {
			calls++
			return wantErr
		})
		if err != wantErr {
			t.Errorf("withRetry() = %v; want %v", err, wantErr)
		}
		if calls != 1 {
			t.Errorf("calls = %d; want 1", calls)
		}
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := withRetry(ctx, fast, func() error { return busy })
		if errors.Cause(err) != context.Canceled {
			t.Errorf("withRetry() = %v; want context.Canceled", err)
		}
	})
}
