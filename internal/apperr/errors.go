// Package apperr holds the error kinds surfaced by the match and rating engine.
package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Match them with errors.Is.
var (
	ErrInvalidState     = errors.New("invalid state")
	ErrTerminalState    = errors.New("terminal state")
	ErrNotRostered      = errors.New("not rostered")
	ErrAlreadyRostered  = errors.New("already rostered")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
)

// Error is an expected failure with a kind and a human readable reason.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// New creates an Error of the given kind with a formatted reason.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Reason returns the human readable reason of err, or its message when err
// does not carry one.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}

// Kind returns the kind sentinel err matches, or nil for unexpected errors.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Code returns a stable machine readable code for err, INTERNAL_ERROR for
// unexpected errors.
func Code(err error) string {
	if code, ok := codes[Kind(err)]; ok {
		return code
	}
	return "INTERNAL_ERROR"
}

var codes = map[error]string{
	ErrInvalidState:     "INVALID_STATE",
	ErrTerminalState:    "TERMINAL_STATE",
	ErrNotRostered:      "NOT_ROSTERED",
	ErrAlreadyRostered:  "ALREADY_ROSTERED",
	ErrCapacityExceeded: "CAPACITY_EXCEEDED",
	ErrUnauthorized:     "UNAUTHORIZED",
	ErrNotFound:         "NOT_FOUND",
	ErrValidation:       "VALIDATION_ERROR",
}

var kinds = []error{
	ErrInvalidState,
	ErrTerminalState,
	ErrNotRostered,
	ErrAlreadyRostered,
	ErrCapacityExceeded,
	ErrUnauthorized,
	ErrNotFound,
	ErrValidation,
}
