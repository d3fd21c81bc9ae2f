// Package domainerrors provides coded errors shared by services and transports.
//
// Services return *Error values (or wrap infrastructure errors into them) so
// that every transport can translate a failure without string matching:
//
//	return dErrors.New(dErrors.CodeValidation, "surname is required")
//	return dErrors.Wrap(err, dErrors.CodeLookupFailure, "candidate lookup failed")
//
// Transports then use HasCode or the httputil helpers to pick a status.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers. Codes are stable strings because they
// are echoed in HTTP and message-bus error envelopes.
type Code string

const (
	// CodeValidation marks malformed or missing mandatory request fields.
	CodeValidation Code = "validation_error"
	// CodeLookupFailure marks a candidate registry that was unreachable or timed out.
	// It is never equivalent to a legitimate "no match" outcome.
	CodeLookupFailure Code = "lookup_failure"
	// CodeConfiguration marks invalid weights, thresholds or wiring detected at startup.
	CodeConfiguration Code = "configuration_error"

	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
// Wrapping a nil error returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when the
// chain carries no domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message, falling back to a generic
// message so infrastructure details are not echoed to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}

// Is reports whether err matches target; re-exported so callers only need one import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Validation, Lookup and Configuration name the three failure classes of the
// matching core.

// Validation builds a CodeValidation error.
func Validation(message string) error { return New(CodeValidation, message) }

// Lookup wraps a candidate-provider failure.
func Lookup(err error, message string) error {
	if err == nil {
		return New(CodeLookupFailure, message)
	}
	return Wrap(err, CodeLookupFailure, message)
}

// Configuration builds a CodeConfiguration error.
func Configuration(format string, args ...any) error {
	return Newf(CodeConfiguration, format, args...)
}
