// Package apperr defines the coded errors shared by the cache, the session
// host and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeNotFound             = "NOT_FOUND"
	CodeLimitExceeded        = "LIMIT_EXCEEDED"
	CodeClosed               = "CLOSED"
	CodeInternal             = "INTERNAL_ERROR"
)

// AppError carries a machine-readable code next to the message.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an error with the given code.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and message to err.
func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// WithDetails returns a copy of e carrying details. Package-level sentinels
// stay untouched.
func (e *AppError) WithDetails(format string, args ...any) *AppError {
	cp := *e
	cp.Details = fmt.Sprintf(format, args...)
	return &cp
}

// CodeOf returns the code of the first *AppError in err's chain, or
// CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsInvalidConfiguration reports whether err carries CodeInvalidConfiguration.
func IsInvalidConfiguration(err error) bool {
	return CodeOf(err) == CodeInvalidConfiguration
}
