package database

import (
	"context"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrBusy marks an operation that kept hitting the file lock after all
// retries; callers translate it to a retryable HTTP response.
var ErrBusy = errors.New("database busy")

// IsBusy reports whether err is an exhausted-retries lock failure.
func IsBusy(err error) bool {
	return errors.Cause(err) == ErrBusy
}

// retryProfile shapes the backoff for contended writes.
type retryProfile struct {
	maxAttempts int
	delay       time.Duration
	factor      float64
	maxDelay    time.Duration
}

var (
	defaultRetry = retryProfile{maxAttempts: 5, delay: 200 * time.Millisecond, factor: 1.5, maxDelay: 2 * time.Second}

	// Registration bursts at semester start are the worst contention case, so
	// it retries longer and backs off more gently.
	registrationRetry = retryProfile{maxAttempts: 10, delay: 500 * time.Millisecond, factor: 1.2, maxDelay: 2 * time.Second}
)

// withRetry runs fn, backing off and retrying on transient lock errors.
// Non-transient errors return immediately; exhausting the attempts yields
// ErrBusy.
func withRetry(ctx context.Context, profile retryProfile, fn func() error) error {
	delay := profile.delay
	var err error
	for attempt := 1; attempt <= profile.maxAttempts; attempt++ {
		if err = fn(); err == nil || !isTransient(err) {
			return err
		}
		if attempt == profile.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * profile.factor)
		if delay > profile.maxDelay {
			delay = profile.maxDelay
		}
	}
	return errors.Wrap(ErrBusy, err.Error())
}

func isTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(errors.Cause(err), &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
