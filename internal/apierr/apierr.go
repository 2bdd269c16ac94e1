// Package apierr defines the error taxonomy shared by the repository,
// operations, REST, and MCP layers so each boundary maps the same kinds
// to its own wire representation.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of status-code mapping.
type Kind string

const (
	Validation         Kind = "validation"
	NotFound           Kind = "not_found"
	AlreadyExists      Kind = "already_exists"
	Conflict           Kind = "conflict"
	Forbidden          Kind = "forbidden"
	ServiceUnavailable Kind = "service_unavailable"
	Internal           Kind = "internal"
)

// Error is the single error type that crosses every internal boundary.
// Resource/Name carry enough context for handlers to build a useful
// message without re-deriving it from Cause.
type Error struct {
	Kind     Kind
	Resource string
	Name     string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Resource != "" && e.Name != "" {
		return fmt.Sprintf("%s %q: %s", e.Resource, e.Name, e.Kind)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, resource, name, message string) *Error {
	return &Error{Kind: kind, Resource: resource, Name: name, Message: message}
}

func Wrap(kind Kind, resource, name string, cause error) *Error {
	return &Error{Kind: kind, Resource: resource, Name: name, Message: cause.Error(), Cause: cause}
}

func Validationf(resource, field, format string, args ...any) *Error {
	return &Error{
		Kind:     Validation,
		Resource: resource,
		Name:     field,
		Message:  fmt.Sprintf(format, args...),
	}
}

func NotFoundf(resource, name string) *Error {
	return &Error{Kind: NotFound, Resource: resource, Name: name, Message: fmt.Sprintf("%s %q not found", resource, name)}
}

func AlreadyExistsf(resource, name string) *Error {
	return &Error{Kind: AlreadyExists, Resource: resource, Name: name, Message: fmt.Sprintf("%s %q already exists", resource, name)}
}

func Conflictf(resource, name, format string, args ...any) *Error {
	return &Error{Kind: Conflict, Resource: resource, Name: name, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: Forbidden, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind of err, defaulting to Internal for anything
// that isn't an *Error — panics and unexpected driver errors become
// opaque Internal errors at the boundary, per spec.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err (or anything it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
