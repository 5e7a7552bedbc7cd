// Package errors provides structured error types for pyseek.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the library packages
//   - Machine-readable error codes for programmatic handling (exit codes)
//   - User-friendly error messages with their cause chains
//
// # Error Codes
//
// Codes mirror the failure taxonomy of interpreter discovery:
//   - REQUEST_PARSE / UNSUPPORTED_VERSION: the request itself is unusable
//   - NOT_FOUND: no candidate interpreter matched
//   - PROBE_FAILED: a candidate could not be inspected
//   - CONFIG_PARSE: a project file could not be read (usually a warning)
//   - CONFLICT / PATH_CONFLICT: irreconcilable constraints or targets
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid prompt: %s", p)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeConfigParse, origErr, "failed to parse %s", path)
//
// Domain error types in other packages participate by implementing [Coder].
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Request errors, reported before any source is enumerated
	ErrCodeRequestParse       Code = "REQUEST_PARSE"
	ErrCodeUnsupportedVersion Code = "UNSUPPORTED_VERSION"
	ErrCodeInvalidInput       Code = "INVALID_INPUT"

	// Discovery errors
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeProbeFailed Code = "PROBE_FAILED"
	ErrCodeConfigParse Code = "CONFIG_PARSE"
	ErrCodeConflict    Code = "CONFLICT"

	// Environment construction errors
	ErrCodePathConflict Code = "PATH_CONFLICT"
	ErrCodeSeed         Code = "SEED_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Coder is implemented by error types that carry a [Code] without being an
// *Error themselves.
type Coder interface {
	Code() Code
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether the outermost coded error in err's chain has the
// given code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from the first coded error in the chain.
// Returns empty string if nothing in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case Coder:
			return e.Code()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Chain returns the user-facing messages of err and each of its causes,
// outermost first. Wrapped errors whose text merely repeats their cause are
// collapsed.
func Chain(err error) []string {
	var out []string
	for err != nil {
		var msg string
		next := errors.Unwrap(err)
		if e, ok := err.(*Error); ok {
			msg = e.Message
		} else {
			msg = err.Error()
			if next != nil {
				if inner := next.Error(); msg == inner {
					msg = ""
				} else if len(msg) > len(inner) && msg[len(msg)-len(inner):] == inner {
					msg = trimSeparator(msg[:len(msg)-len(inner)])
				}
			}
		}
		if msg != "" {
			out = append(out, msg)
		}
		err = next
	}
	return out
}

func trimSeparator(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == ':') {
		s = s[:len(s)-1]
	}
	return s
}
