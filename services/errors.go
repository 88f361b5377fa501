package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrPolicyViolation     = errors.New("policy violation")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrInfrastructure      = errors.New("infrastructure failure")
)

// Error carries one of the sentinel kinds above plus a message that is safe
// to show to the caller. Err holds the underlying cause, if any.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func infraError(msg string, err error) *Error {
	return &Error{Kind: ErrInfrastructure, Message: msg, Err: err}
}

// Message returns the caller-facing text of err. Infrastructure failures
// get a generic message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrInfrastructure {
		return e.Message
	}
	return "internal server error"
}
