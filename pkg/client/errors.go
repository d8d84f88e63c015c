package client

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNetworkFailure covers transport failures: no connectivity, timeouts,
	// TLS errors, and an open circuit breaker.
	ErrNetworkFailure = errors.New("network failure")
	// ErrBadStatus is returned for non-2xx responses in strict status mode.
	ErrBadStatus = errors.New("bad status")
	// ErrSchemaMismatch is returned when a body does not decode into the
	// expected response schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// StatusError carries the rejected status code in strict status mode.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", ErrBadStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrBadStatus
}

// Classify maps an error onto the failure taxonomy used in logs and stats.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, ErrBadStatus):
		return "bad_status"
	case errors.Is(err, ErrNetworkFailure),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return "network_failure"
	default:
		return "unknown"
	}
}

func schemaMismatch(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, fmt.Sprintf(format, args...))
}
