package domain

import (
	"errors"
	"fmt"
)

// Code classifies a failure so callers can decide between retrying,
// surfacing a user-facing message, or escalating to an operator.
type Code string

const (
	CodeAlreadyHeld       Code = "AlreadyHeld"
	CodeInsufficientFunds Code = "InsufficientFunds"
	CodeInvalidTransition Code = "InvalidTransition"
	CodeAlreadyProcessed  Code = "AlreadyProcessed"
	CodeNoRefundPolicy    Code = "NoRefundPolicy"
	CodeNotFound          Code = "NotFound"
	CodeValidation        Code = "Validation"
	CodeConflict          Code = "Conflict"
	CodeNotEligible       Code = "NotEligible"
	CodeFeeMissing        Code = "FeeMissing"
	CodeForbidden         Code = "Forbidden"
	CodeSuspended         Code = "Suspended"
	CodeUnavailable       Code = "Unavailable"
)

// Error is the recoverable error type returned by every service in the engine.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so errors.Is(err, domain.ErrAlreadyHeld) holds for any
// AlreadyHeld error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrAlreadyHeld       = &Error{Code: CodeAlreadyHeld}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrAlreadyProcessed  = &Error{Code: CodeAlreadyProcessed}
	ErrNoRefundPolicy    = &Error{Code: CodeNoRefundPolicy}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrValidation        = &Error{Code: CodeValidation}
	ErrConflict          = &Error{Code: CodeConflict}
	ErrNotEligible       = &Error{Code: CodeNotEligible}
	ErrFeeMissing        = &Error{Code: CodeFeeMissing}
	ErrForbidden         = &Error{Code: CodeForbidden}
	ErrSuspended         = &Error{Code: CodeSuspended}
	ErrUnavailable       = &Error{Code: CodeUnavailable}
)

// New builds an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(resource, id string) *Error {
	return New(CodeNotFound, "%s %s not found", resource, id)
}

func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

func InvalidTransition(from, to string) *Error {
	return New(CodeInvalidTransition, "cannot move from %s to %s", from, to)
}

// Unavailable marks a data-store failure. It is the only fatal class and must
// never be converted into a success by callers.
func Unavailable(err error, op string) *Error {
	return Wrap(CodeUnavailable, err, "%s", op)
}

// CodeOf returns the code carried by err, or "" when err is not a domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
