package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

const (
	// ErrUnknownAgent: a task referenced an agent that is not registered.
	ErrUnknownAgent ErrorCode = "UNKNOWN_AGENT"
	// ErrUnknownSkill: an agent was asked for a skill it does not own.
	ErrUnknownSkill ErrorCode = "UNKNOWN_SKILL"
	// ErrValidation: skill input failed validation; nothing was executed or stored.
	ErrValidation ErrorCode = "VALIDATION"
	// ErrWorkspace: an underlying source-control tool invocation failed.
	ErrWorkspace ErrorCode = "WORKSPACE"
	// ErrTransport: an external collaborator call (LLM, PR host) failed.
	ErrTransport ErrorCode = "TRANSPORT"
	// ErrStore: the persistent artifact catalog rejected an operation.
	ErrStore ErrorCode = "STORE"
)

// Error is a structured error with a code, message, and optional detail.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details []string  `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	case len(e.Details) > 0:
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, strings.Join(e.Details, "; "))
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetails attaches detail lines, e.g. validation error messages.
func (e *Error) WithDetails(details ...string) *Error {
	e.Details = append(e.Details, details...)
	return e
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
