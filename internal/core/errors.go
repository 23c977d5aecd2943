// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Errorf wraps base with a formatted cause.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// Code returns the code of the first *Error in err's chain, or "" if none.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInternal reports whether err is an invariant violation rather than a
// condition caused by user input or upstream data.
func IsInternal(err error) bool {
	return errors.Is(err, ErrDegenerateWeights)
}

// Predefined errors
var (
	// Request errors
	ErrInvalidStrategy = &Error{Code: "INVALID_STRATEGY", Message: "unknown strategy"}
	ErrInvalidRequest  = &Error{Code: "INVALID_REQUEST", Message: "invalid request"}
	ErrEmptyUniverse   = &Error{Code: "EMPTY_UNIVERSE", Message: "no ticker satisfies the selected strategies"}

	// Per-ticker data errors
	ErrSymbolNotFound      = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrRateLimited         = &Error{Code: "RATE_LIMITED", Message: "market data rate limit exceeded"}
	ErrInsufficientHistory = &Error{Code: "INSUFFICIENT_HISTORY", Message: "insufficient price history"}
	ErrInvalidHistory      = &Error{Code: "INVALID_HISTORY", Message: "price history dates not strictly increasing"}
	ErrCollectorFailed     = &Error{Code: "COLLECTOR_FAILED", Message: "collector failed"}
	ErrAllDataUnavailable  = &Error{Code: "ALL_DATA_UNAVAILABLE", Message: "market data unavailable for every candidate"}

	// Invariant violations
	ErrDegenerateWeights = &Error{Code: "DEGENERATE_WEIGHTS", Message: "scores cannot be normalized into weights"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrLLMFailed = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
)
