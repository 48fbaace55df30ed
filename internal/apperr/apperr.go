// Package apperr defines the error taxonomy shared by services and
// transports. Every business failure carries a Kind so callers can pick the
// right response without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is a persistence or programming failure.
	KindInternal Kind = iota
	// KindValidation is malformed or missing input.
	KindValidation
	// KindAuthentication means the caller has no valid identity.
	KindAuthentication
	// KindAuthorization means the identity lacks the required rights.
	KindAuthorization
	// KindNotFound means the resource is absent or its identifier is malformed.
	KindNotFound
	// KindConflict is a uniqueness violation; card creation may be retried.
	KindConflict
)

var kindNames = map[Kind]string{
	KindInternal:       "internal",
	KindValidation:     "validation",
	KindAuthentication: "authentication",
	KindAuthorization:  "authorization",
	KindNotFound:       "not_found",
	KindConflict:       "conflict",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Storage sentinels returned by repositories.
var (
	// ErrRecordNotFound is returned when no row matches.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a write violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	// Details lists per-field validation messages.
	Details []string
	// Err is the underlying cause, kept for logs.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports rejected input with one message per problem.
func Validation(details ...string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Details: details}
}

// Unauthenticated reports a missing or invalid identity.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

// Forbidden reports insufficient rights.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// NotFound reports an absent resource.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict reports a uniqueness violation.
func Conflict(msg string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: cause}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// KindOf returns the kind of err, looking through wrapping. Unclassified
// errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
