// Package apperr defines the error taxonomy shared by the authorization, lifecycle
// and ingest layers. Errors carry a Kind which the HTTP boundary maps to a fixed
// response shape.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the request boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindValidation
	KindNotFound
	KindConflict
	KindDegraded
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDegraded:
		return "degraded"
	default:
		return "internal"
	}
}

// Error is the result type propagated up to the request boundary.
//
// Reason is for internal logging only and must never be shown to callers of
// Unauthenticated or Forbidden errors. Message is safe to show.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind and reason so callers can use errors.Is
// against a package level sentinel even after Wrap or WithMessage added
// context. A sentinel without a message matches any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Reason == e.Reason && (t.Message == "" || t.Message == e.Message)
}

// WithMessage returns a copy of e with a caller visible message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	clone := *e
	clone.Err = cause
	return &clone
}

// Unauthenticated builds an authentication failure. reason is logged, never returned.
func Unauthenticated(reason string) *Error {
	return &Error{Kind: KindUnauthenticated, Reason: reason}
}

// Forbidden builds an authorization failure. reason is logged, never returned.
func Forbidden(reason string) *Error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

// Invalid builds a validation failure with a caller visible message.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a missing entity error.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Conflict builds a uniqueness violation error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Degraded marks a best-effort dependency failure.
func Degraded(reason string, cause error) *Error {
	return &Error{Kind: KindDegraded, Reason: reason, Err: cause}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the internal reason attached to err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
