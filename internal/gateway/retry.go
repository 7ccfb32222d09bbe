// Package gateway wraps every outbound call — entitlement gateway, document
// gateway, persistence — in uniform retry logic and the shared result
// envelope. No error crosses this boundary: clients return domain.Result and
// callers branch on Success.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// ErrStaleStatement is the persistence "needs re-prepare" condition: the
// prepared statement was invalidated by a schema change and the call is safe
// to retry.
var ErrStaleStatement = errors.New("statement needs re-prepare")

// StatusError carries an upstream HTTP status through the retry predicate.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// Caller retries an operation on transient failures: up to Attempts tries
// with linearly increasing backoff (attempt x Delay).
type Caller struct {
	Attempts  int
	Delay     time.Duration
	Retryable func(error) bool
	Logger    *slog.Logger
}

// NewCaller builds a caller with the default transient-error predicate.
func NewCaller(attempts int, delay time.Duration, logger *slog.Logger) *Caller {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Caller{Attempts: attempts, Delay: delay, Retryable: Transient, Logger: logger}
}

// Do runs fn up to Attempts times. Non-retryable errors fail immediately.
// On final failure it logs the rendered request description so operators can
// reproduce the call; describe must redact secrets before rendering.
func (c *Caller) Do(ctx context.Context, op string, fn func(context.Context) error, describe func() string) error {
	var lastErr error

	for attempt := 1; attempt <= c.Attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * c.Delay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !c.Retryable(err) {
			c.Logger.Warn("call rejected upstream", "op", op, "attempt", attempt, "err", err)
			return err
		}
		c.Logger.Warn("call failed, transient", "op", op, "attempt", attempt, "of", c.Attempts, "err", err)
	}

	if describe != nil {
		c.Logger.Error("call exhausted retries", "op", op, "attempts", c.Attempts,
			"request", describe(), "err", lastErr)
	} else {
		c.Logger.Error("call exhausted retries", "op", op, "attempts", c.Attempts, "err", lastErr)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, c.Attempts, lastErr)
}

// Transient is the default retryable predicate: connection reset, refused or
// timed out, upstream 5xx, and the persistence stale-statement condition.
// Everything else — 4xx, decode errors, context cancellation — fails fast.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrStaleStatement) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= 500
	}
	return false
}
