package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so callers can distinguish
// client-caused from backend-caused errors without walking causes.
type ErrorKind string

const (
	// ErrorKindConfiguration indicates no usable backend or a disallowed one
	ErrorKindConfiguration ErrorKind = "configuration"
	// ErrorKindValidation indicates client-caused input problems
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindBackend indicates transient backend failures (retried)
	ErrorKindBackend ErrorKind = "backend"
	// ErrorKindParse indicates an LLM response that failed JSON/schema checks (retried)
	ErrorKindParse ErrorKind = "parse"
	// ErrorKindRendering indicates a non-fatal annotation failure
	ErrorKindRendering ErrorKind = "rendering"
)

// Error is the tagged pipeline error carried across component boundaries.
// The kind is set at the point of failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a configuration-kind error
func NewConfigurationError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError creates a validation-kind error
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewBackendError creates a backend-kind error wrapping the transport cause
func NewBackendError(message string, err error) *Error {
	return &Error{Kind: ErrorKindBackend, Message: message, Err: err}
}

// NewParseError creates a parse-kind error wrapping the decode cause
func NewParseError(message string, err error) *Error {
	return &Error{Kind: ErrorKindParse, Message: message, Err: err}
}

// NewRenderingError creates a rendering-kind error
func NewRenderingError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindRendering, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying error
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// ErrStrictSchemaRejected marks a backend rejection of strict schema mode.
// Callers retry the same request in plain JSON object mode.
var ErrStrictSchemaRejected = errors.New("strict json schema mode rejected")

// KindOf returns the kind of err when it carries one, or ErrorKindBackend
// for plain errors (unknown failures are treated as backend-caused).
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorKindBackend
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
