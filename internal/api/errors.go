package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when a staff call carries a missing or
// rejected bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError means the request itself is wrong (missing guest or
// table context, empty items, bad split count). Fixable by re-binding or
// correcting input; never worth a blind retry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// NetworkError wraps a transport failure or backend 5xx. Transient:
// eligible for manual retry, never silent auto-retry on state-changing
// calls.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConflictError means the backend rejected an illegal transition, e.g.
// cancelling an already-paid order. The message is surfaced verbatim to
// the user and local state is refreshed from the server afterward.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Message)
}

// IsRetryable reports whether the error is a transient network failure.
func IsRetryable(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsConflict reports whether the backend refused an illegal transition.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
