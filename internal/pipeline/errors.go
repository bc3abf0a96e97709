package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the UI layer can pick a notification.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindOutOfRange     ErrorKind = "out_of_range"
	KindInvalidMapping ErrorKind = "invalid_mapping"
	KindPrecondition   ErrorKind = "precondition"
	KindBackend        ErrorKind = "backend"
	KindBusy           ErrorKind = "busy"
)

// Sentinels for errors.Is; an *Error matches the sentinel of its kind.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrOutOfRange     = &Error{Kind: KindOutOfRange}
	ErrInvalidMapping = &Error{Kind: KindInvalidMapping}
	ErrPrecondition   = &Error{Kind: KindPrecondition}
	ErrBackend        = &Error{Kind: KindBackend}
	ErrBusy           = &Error{Kind: KindBusy}
)

// Error is the error type returned by every workflow operation.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrPrecondition) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

// KindOf returns the kind of a workflow error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// BackendError wraps a failed external request.
func BackendError(op string, err error) error {
	return wrapError(KindBackend, op, err)
}
