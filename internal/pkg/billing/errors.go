package billing

import (
	"errors"
	"fmt"
)

// Code classifies every failure the engine can produce. The set is closed;
// transport-level mapping happens in exactly one place at the HTTP boundary.
type Code string

const (
	CodeSignatureInvalid Code = "signature_invalid"
	CodeDuplicateEvent   Code = "duplicate_event"
	CodeOutOfOrderEvent  Code = "out_of_order_event"
	CodeSyncError        Code = "sync_error"
	CodePersistenceError Code = "persistence_error"
)

// Error is the engine's error type: a closed code plus the wrapped cause.
type Error struct {
	Code  Code
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError wraps cause with an engine error code.
func NewError(code Code, cause error) *Error {
	return &Error{Code: code, cause: cause}
}

// CodeOf extracts the engine code from err, or empty string when err does not
// originate from the engine.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
