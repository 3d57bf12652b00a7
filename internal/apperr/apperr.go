// Package apperr defines the closed error taxonomy shared across the
// comparison engine. Every exported function that can fail in a way the
// caller must distinguish returns an *Error with one of these kinds;
// unexpected failures from dependencies are wrapped as KindInternal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a closed set of error categories. Boundaries (HTTP handlers, the
// admin CLI) map a Kind to a transport-specific status; internals never
// inspect raw error strings to decide behavior.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindPolicyViolation Kind = "policy_violation"
	KindDataInsufficient Kind = "data_insufficient"
	KindSchemaInvalid  Kind = "schema_validation_error"
	KindNotImplemented Kind = "not_implemented"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

// Error is the structured error type returned across package boundaries.
// Detail carries kind-specific structured data (e.g. the conflicting code
// for KindConflict, the supported insurer list for KindNotImplemented) so
// a boundary can render an actionable response without string parsing.
type Error struct {
	Kind    Kind
	Message string
	Detail  map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

func new(kind Kind, msg string, detail map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Detail: detail}
}

func Validation(msg string, detail ...map[string]any) *Error {
	return new(KindValidation, msg, firstDetail(detail))
}

func PolicyViolation(msg string, detail ...map[string]any) *Error {
	return new(KindPolicyViolation, msg, firstDetail(detail))
}

func DataInsufficient(msg string, detail ...map[string]any) *Error {
	return new(KindDataInsufficient, msg, firstDetail(detail))
}

func SchemaInvalid(msg string, err error) *Error {
	e := new(KindSchemaInvalid, msg, nil)
	e.Wrapped = err
	return e
}

// NotImplemented reports that a caller-selected insurer has no registered
// parser/capability. supported lists what is available so the caller can
// correct its request without guessing.
func NotImplemented(msg string, supported []string) *Error {
	return new(KindNotImplemented, msg, map[string]any{"supported": supported})
}

// Conflict reports that an admin write would overwrite an existing mapping
// with a different canonical code. existingCode is surfaced so the caller
// can decide whether to resolve manually.
func Conflict(msg, existingCode string) *Error {
	return new(KindConflict, msg, map[string]any{"existing_code": existingCode})
}

func Internal(msg string, err error) *Error {
	e := new(KindInternal, msg, nil)
	e.Wrapped = err
	return e
}

func firstDetail(detail []map[string]any) map[string]any {
	if len(detail) == 0 {
		return nil
	}
	return detail[0]
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
// Returns KindInternal for anything else, matching the propagation policy
// in spec.md §7: unexpected errors surface as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
