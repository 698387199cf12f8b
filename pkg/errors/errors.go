// Package errors provides structured error types for gitlanes.
//
// Core packages report failures through sentinel errors. The pipeline, CLI
// and HTTP server attach a machine-readable [Code] to them so callers can
// branch on the kind of failure without string matching:
//
//	err := errors.Wrap(errors.ErrCodeRepository, cause, "read %s", path)
//	if errors.Is(err, errors.ErrCodeRepository) {
//	    // collaborator failed; nothing was drawn
//	}
//
// [HTTPStatus] maps codes to response status codes for the server.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidRef    Code = "INVALID_REF"

	// History errors
	ErrCodeOrphanCommit Code = "ORPHAN_COMMIT"
	ErrCodeRepository   Code = "REPOSITORY_ERROR"
	ErrCodeNotFound     Code = "NOT_FOUND"

	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
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

// HTTPStatus returns the response status for err's code.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidRef:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeOrphanCommit:
		return http.StatusUnprocessableEntity
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	case ErrCodeRepository:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode returns the process exit status for err: 0 for nil, 2 for bad
// input, 3 when the repository could not be read or lacks what was asked
// for, 4 on timeout and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidRef:
		return 2
	case ErrCodeRepository, ErrCodeNotFound, ErrCodeOrphanCommit:
		return 3
	case ErrCodeTimeout:
		return 4
	default:
		return 1
	}
}
