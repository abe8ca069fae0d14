package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoCredentials means the backend's secret did not resolve. The source is
// unavailable this run; that is a silent skip, not a failure.
var ErrNoCredentials = errors.New("credentials not configured")

// AuthError is a permanent authorization failure (revoked key, expired
// subscription). It is surfaced once at a user-actionable level and the
// source is not called again within the run: retrying burns quota on a call
// that cannot succeed.
type AuthError struct {
	Source string
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authorization rejected (status %d); check the configured credentials", e.Source, e.Status)
}

// TransientError covers timeouts, server errors and malformed bodies.
// Expected, not actionable; logged for developers only.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so the orchestrator classifies it as a transient skip.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// ThrottleNotice is the user-facing "source skipped, try again later" note
// produced when the rate ledger denies a call.
type ThrottleNotice struct {
	Source     string        `json:"source"`
	RetryAfter time.Duration `json:"retryAfter"`
}
