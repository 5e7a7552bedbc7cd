package errors

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeConfigParse, cause, "failed to parse")

	if err.Code != ErrCodeConfigParse {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeConfigParse)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

type codedError struct{}

func (codedError) Error() string { return "coded" }
func (codedError) Code() Code    { return ErrCodeNotFound }

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeConflict,
			expected: false,
		},
		{
			name:     "outermost code wins",
			err:      Wrap(ErrCodePathConflict, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodePathConflict,
			expected: true,
		},
		{
			name:     "coder behind fmt wrapping",
			err:      fmt.Errorf("context: %w", codedError{}),
			code:     ErrCodeNotFound,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeConflict, "bad")); got != "bad" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestChain(t *testing.T) {
	root := errors.New("permission denied")
	mid := fmt.Errorf("failed to query Python interpreter at `/x`: %w", root)
	top := Wrap(ErrCodeProbeFailed, mid, "Failed to inspect Python interpreter from provided path at `x`")

	got := Chain(top)
	want := []string{
		"Failed to inspect Python interpreter from provided path at `x`",
		"failed to query Python interpreter at `/x`",
		"permission denied",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Chain() = %q, want %q", got, want)
	}
}
