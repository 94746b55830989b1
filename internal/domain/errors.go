package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used inside infrastructure adapters. Services translate them
// into a kind-tagged *Error before anything reaches a handler.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Kind classifies a failure by what the caller can do about it.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindPrecondition
	KindUnauthorized
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindPrecondition:
		return "precondition"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is the outcome value returned by every application service.
// Message is safe to show to a client; Err is kept for logs only.
type Error struct {
	Kind    Kind
	Message string
	Reasons []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrTransient    = &Error{Kind: KindTransient}
)

func Validation(message string, reasons ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Reasons: reasons}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Transient wraps an infrastructure failure behind a generic message.
func Transient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}

// KindOf reports the kind of err, defaulting to KindTransient for anything
// that was not translated at its call site.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}
