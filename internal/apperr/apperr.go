// Package apperr defines the error kinds reported by the rating and
// challenge services. Callers test for a kind with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
)

// Error carries a client-facing message and one or more kinds.
type Error struct {
	Msg   string
	kinds []error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() []error {
	return e.kinds
}

func newError(kinds []error, format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...), kinds: kinds}
}

func NotFound(format string, args ...any) error {
	return newError([]error{ErrNotFound}, format, args...)
}

func InvalidArgument(format string, args ...any) error {
	return newError([]error{ErrInvalidArgument}, format, args...)
}

func InvalidTransition(format string, args ...any) error {
	return newError([]error{ErrInvalidTransition}, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError([]error{ErrConflict}, format, args...)
}

// TransitionConflict is a state-machine violation that the API surfaces as a
// conflict, such as deleting an accepted challenge.
func TransitionConflict(format string, args ...any) error {
	return newError([]error{ErrInvalidTransition, ErrConflict}, format, args...)
}

// Message returns the client-facing message of err, or "" when err was not
// produced by this package.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}
