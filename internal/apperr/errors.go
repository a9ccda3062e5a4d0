// Package apperr defines the error taxonomy shared by the managers, the
// storage backends and the HTTP layer.
//
// Every failure a manager reports to its caller is an *Error carrying a Kind.
// Callers branch on the kind with errors.Is against the sentinel values:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
//
// Errors produced by the standard library or a driver are wrapped into a
// Persistence error at the manager boundary, so the HTTP layer only needs to
// understand the kinds listed here.
package apperr

import (
	"errors"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	// KindValidation reports a missing or invalid required field. It is
	// returned before any mutation takes place.
	KindValidation Kind = iota + 1

	// KindNotFound reports that the target id of an operation does not exist.
	KindNotFound

	// KindReserved reports an attempt to delete, rename or archive a
	// reserved entity such as the "general" project.
	KindReserved

	// KindConflict reports a duplicate name where uniqueness is required.
	KindConflict

	// KindPersistence reports that the backing store could not be read or
	// written. The in-memory state may already reflect the mutation.
	KindPersistence
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindReserved:
		return "reserved"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Sentinel values for errors.Is.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrReserved    = &Error{Kind: KindReserved}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrPersistence = &Error{Kind: KindPersistence}
)

// Error is the single error type returned by the managers.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Entity is the logical entity name (for example "task" or "project").
	Entity string

	// ID is the identifier or field name the error refers to. May be empty.
	ID string

	// Reason is a short human-readable explanation. May be empty.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// Error renders the message as "<entity> <id>: <reason>: <cause>", omitting
// empty parts.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Entity != "" {
		b.WriteString(e.Entity)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.ID != "" {
		b.WriteString(" ")
		b.WriteString(e.ID)
	}
	b.WriteString(": ")
	if e.Reason != "" {
		b.WriteString(e.Reason)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, which makes the sentinel values
// usable with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation builds a KindValidation error for a field of an entity.
func Validation(entity, field, reason string) *Error {
	return &Error{Kind: KindValidation, Entity: entity, ID: field, Reason: reason}
}

// NotFound builds a KindNotFound error.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Reason: "not found"}
}

// Reserved builds a KindReserved error.
func Reserved(entity, id, reason string) *Error {
	return &Error{Kind: KindReserved, Entity: entity, ID: id, Reason: reason}
}

// Conflict builds a KindConflict error.
func Conflict(entity, id, reason string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, ID: id, Reason: reason}
}

// Persistence wraps a storage failure.
func Persistence(entity string, err error) *Error {
	return &Error{Kind: KindPersistence, Entity: entity, Reason: "persist failed", Err: err}
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
