// Package flinterrors defines the error taxonomy shared across the vault,
// index, and tool-surface layers.
package flinterrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way callers across the tool surface need to
// distinguish them (HTTP-status-like, but for a JSON-framed tool protocol).
type Kind string

const (
	NotFound        Kind = "NotFound"
	AlreadyExists   Kind = "AlreadyExists"
	Invalid         Kind = "Invalid"
	ProtectedField  Kind = "ProtectedField"
	ConflictStale   Kind = "ConflictStale"
	BadQuery        Kind = "BadQuery"
	SchemaViolation Kind = "SchemaViolation"
	IO              Kind = "IO"
)

// Error is the Kind-tagged error type. Callers at the tool boundary map it
// to a {kind, message} payload.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a Kind-tagged error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs a Kind-tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a Kind and message, preserving it for
// errors.Is/As via Unwrap.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == kind
}
