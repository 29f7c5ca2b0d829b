package account

import (
	"errors"
	"fmt"
)

// Code is the machine-readable class tag carried by every workflow error.
type Code string

const (
	CodeInvalidParams     Code = "invalid-params"
	CodeNotFound          Code = "not-found"
	CodeAmbiguousMatch    Code = "ambiguous-match"
	CodeIncorrectPassword Code = "incorrect-password"
	// CodeBadToken covers expired and wrong tokens alike so a caller cannot
	// tell which check failed.
	CodeBadToken      Code = "token-expired-or-invalid"
	CodeNotVerified   Code = "not-verified"
	CodeForbidden     Code = "forbidden"
	CodeInvalidAction Code = "invalid-action"
	CodeGeneration    Code = "token-generation-failed"
)

// Error is the structured error surfaced by workflows and the dispatcher.
type Error struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a typed workflow error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError builds a typed workflow error around an underlying cause.
func WrapError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the class tag from an error chain; empty when the error is
// not a workflow error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
