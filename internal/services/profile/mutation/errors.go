package mutation

import (
	"errors"
	"strings"
)

// Code is a machine-readable mutation error code. The set is closed:
// every error leaving this package carries exactly one of these codes.
type Code string

const (
	// CodeUnauthenticated means the request carried no live session.
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	// CodeNotFound means the authenticated user's record is missing.
	CodeNotFound Code = "NOT_FOUND"
	// CodeInvalidInput means one or more request fields failed validation.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeConflict means the update lost to concurrent state.
	CodeConflict Code = "CONFLICT"
	// CodePersistenceFailure means the database write failed; no state
	// changed.
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	// CodePublishFailure means the database write committed but the
	// event broadcast did not. State HAS changed.
	CodePublishFailure Code = "PUBLISH_FAILURE"
)

// Error is the mutation error type with structured field attribution.
type Error struct {
	Code    Code     // Machine-readable error code
	Message string   // Internal message (for logs/telemetry)
	Fields  []string // Request fields at fault, for INVALID_INPUT
	Cause   error    // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + " (" + strings.Join(e.Fields, ", ") + ")"
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a mutation error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Invalid creates an INVALID_INPUT error attributed to request fields.
func Invalid(message string, fields ...string) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Message: message,
		Fields:  fields,
	}
}

// Wrap creates a mutation error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the mutation code from an error chain. It returns
// false when the chain carries no mutation error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
