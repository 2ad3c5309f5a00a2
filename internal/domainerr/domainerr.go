// Package domainerr defines the error taxonomy shared across the execution
// and orchestration core: NotFound, Conflict, Invariant, Timeout,
// SubprocessFailure and Internal.
package domainerr

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind discriminates the category of a domain error.
type Kind string

const (
	// NotFound means an entity id did not resolve.
	NotFound Kind = "not_found"
	// Conflict means a unique-name collision, busy agent, or non-active
	// pattern blocked the operation.
	Conflict Kind = "conflict"
	// Invariant means a schema bound was violated.
	Invariant Kind = "invariant"
	// Timeout means a deadline elapsed.
	Timeout Kind = "timeout"
	// SubprocessFailure means the primary subprocess runner raised or
	// exited non-zero.
	SubprocessFailure Kind = "subprocess_failure"
	// Internal means an uncaught condition occurred; always paired with
	// an opaque ErrorID for log correlation.
	Internal Kind = "internal"
)

// Error is the single error type used across the core. It never leaks a
// stack trace; Internal errors carry a short ErrorID instead.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	ErrorID string
}

func (e *Error) Error() string {
	if e.ErrorID != "" {
		return fmt.Sprintf("%s: %s (error_id=%s)", e.Kind, e.Message, e.ErrorID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// WithDetail attaches a key/value pair to the error's Details map and
// returns the same error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newErrorID() string {
	return uuid.New().String()[:8]
}

// NewNotFound builds a NotFound error echoing the missing entity kind and id.
func NewNotFound(entity, id string) *Error {
	return &Error{
		Kind:    NotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewConflict builds a Conflict error with a human-readable suggestion.
func NewConflict(message string, suggestion string) *Error {
	err := &Error{Kind: Conflict, Message: message}
	if suggestion != "" {
		err.WithDetail("suggestion", suggestion)
	}
	return err
}

// NewInvariant builds an Invariant error naming the offending field and bound.
func NewInvariant(field, bound string) *Error {
	return &Error{
		Kind:    Invariant,
		Message: fmt.Sprintf("field %q violates bound: %s", field, bound),
		Details: map[string]any{"field": field, "bound": bound},
	}
}

// NewTimeout builds a Timeout error carrying the elapsed deadline in seconds.
func NewTimeout(timeoutSeconds float64) *Error {
	return &Error{
		Kind:    Timeout,
		Message: "deadline exceeded",
		Details: map[string]any{"timeout_seconds": timeoutSeconds},
	}
}

// NewSubprocessFailure builds a SubprocessFailure error from the underlying cause.
func NewSubprocessFailure(cause error) *Error {
	return &Error{
		Kind:    SubprocessFailure,
		Message: cause.Error(),
	}
}

// NewInternal builds an Internal error with a fresh opaque ErrorID for log
// correlation. The caller is expected to log `cause` against ErrorID.
func NewInternal(cause error) *Error {
	return &Error{
		Kind:    Internal,
		Message: "internal error",
		ErrorID: newErrorID(),
		Details: map[string]any{"cause": cause.Error()},
	}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	de, ok := err.(*Error)
	return ok && de.Kind == kind
}
