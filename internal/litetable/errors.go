package litetable

import (
	"errors"
	"fmt"
)

// Engine faults. These mean the engine or a backend adapter is broken and are never retried.
var (
	ErrDecode          = errors.New("decode fault")
	ErrBoundsViolation = errors.New("bounds violation")
)

// ErrBackendIO wraps any failure talking to a backend. The whole call is abandoned and can be
// retried as a unit.
var ErrBackendIO = errors.New("backend io failure")

// Caller errors.
var (
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidRequest   = errors.New("invalid range request")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrTableNotFound    = errors.New("table not found")
)

// Error wraps a sentinel error with additional context and, optionally, the underlying cause.
type Error struct {
	err     error  // The underlying sentinel error
	context string // Additional error context
	cause   error  // The error that triggered this one, if any
}

// Error satisfies the error interface
func (e *Error) Error() string {
	msg := e.err.Error()
	if e.context != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.context)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.err}
	}
	return []error{e.err, e.cause}
}

// newError creates a new error with context
func newError(err error, format string, args ...interface{}) *Error {
	return &Error{
		err:     err,
		context: fmt.Sprintf(format, args...),
	}
}

// Errorf builds an *Error for sentinel err with a formatted context.
func Errorf(err error, format string, args ...interface{}) error {
	return newError(err, format, args...)
}

// Wrap attaches cause to sentinel err. A nil cause returns nil.
func Wrap(err, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	e := newError(err, format, args...)
	e.cause = cause
	return e
}

// WrapIO marks cause as a backend I/O failure unless it already carries a classification.
func WrapIO(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	var classified *Error
	if errors.As(cause, &classified) {
		return cause
	}
	return Wrap(ErrBackendIO, cause, format, args...)
}

// IsRetryable reports whether err is a backend I/O failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBackendIO)
}

// IsFault reports whether err is an internal-consistency fault: an engine or adapter bug that
// should alert rather than retry.
func IsFault(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrBoundsViolation)
}
