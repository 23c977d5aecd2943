// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrSymbolNotFound, ErrSymbolNotFound) {
		t.Error("same error should match")
	}
	if errors.Is(ErrSymbolNotFound, ErrRateLimited) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrCollectorFailed, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrCollectorFailed.Code {
		t.Error("code not preserved")
	}
	if !errors.Is(wrapped, ErrCollectorFailed) {
		t.Error("wrapped error should match its base by code")
	}
}

func TestCode(t *testing.T) {
	err := fmt.Errorf("fetching AAPL: %w", Errorf(ErrRateLimited, "status %d", 429))
	if got := Code(err); got != "RATE_LIMITED" {
		t.Errorf("Code() = %q, want RATE_LIMITED", got)
	}
	if got := Code(errors.New("plain")); got != "" {
		t.Errorf("Code() = %q, want empty", got)
	}
}

func TestIsInternal(t *testing.T) {
	if !IsInternal(WrapError(ErrDegenerateWeights, nil)) {
		t.Error("degenerate weights should be internal")
	}
	for _, err := range []error{ErrInvalidStrategy, ErrEmptyUniverse, ErrAllDataUnavailable} {
		if IsInternal(err) {
			t.Errorf("%v should be user-facing", err)
		}
	}
}
