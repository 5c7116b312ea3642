package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
		msg  string
	}{
		{
			name: "configuration error",
			err:  NewConfigurationError("unknown OCR engine: %s", "paddle"),
			kind: ErrorKindConfiguration,
			msg:  "unknown OCR engine: paddle",
		},
		{
			name: "validation error",
			err:  NewValidationError("doc_type cannot be empty."),
			kind: ErrorKindValidation,
			msg:  "doc_type cannot be empty.",
		},
		{
			name: "backend error wraps cause",
			err:  NewBackendError("chat completion failed", errors.New("dial tcp: timeout")),
			kind: ErrorKindBackend,
			msg:  "chat completion failed",
		},
		{
			name: "parse error",
			err:  NewParseError("no JSON object found in response", nil),
			kind: ErrorKindParse,
			msg:  "no JSON object found in response",
		},
		{
			name: "rendering error",
			err:  NewRenderingError("failed to render page %d", 3),
			kind: ErrorKindRendering,
			msg:  "failed to render page 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.msg)
			}
			if KindOf(tt.err) != tt.kind {
				t.Errorf("KindOf() = %v, want %v", KindOf(tt.err), tt.kind)
			}
			if !IsKind(tt.err, tt.kind) {
				t.Errorf("IsKind(%v) = false, want true", tt.kind)
			}
		})
	}
}

func TestKindOfUnwrapsChains(t *testing.T) {
	cause := NewValidationError("bbox x0 (5) must be <= x1 (2), got [5 0 2 2]")
	wrapped := fmt.Errorf("page 1: %w", cause)

	if KindOf(wrapped) != ErrorKindValidation {
		t.Errorf("KindOf(wrapped) = %v, want %v", KindOf(wrapped), ErrorKindValidation)
	}
	if !IsKind(wrapped, ErrorKindValidation) {
		t.Errorf("IsKind should see through fmt.Errorf wrapping")
	}
}

func TestKindOfDefaultsToBackend(t *testing.T) {
	if got := KindOf(errors.New("plain error")); got != ErrorKindBackend {
		t.Errorf("KindOf(plain) = %v, want %v", got, ErrorKindBackend)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewBackendError("LLM call failed", cause)
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should reach the wrapped cause")
	}
}
