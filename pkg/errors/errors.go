// Package errors defines SkyShift's error taxonomy (spec.md §7): kinds, not
// names. Each kind maps to one HTTP status at the API boundary and one retry
// policy in the controllers.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the taxonomy tag attached to a SkyShift error.
type Kind string

const (
	KindValidation    Kind = "Validation"
	KindNotFound      Kind = "NotFound"
	KindAlreadyExists Kind = "AlreadyExists"
	KindConflict      Kind = "Conflict"
	KindTransient     Kind = "Transient"
	KindAdapter       Kind = "Adapter"
	KindFatal         Kind = "Fatal"
)

// Error is a taxonomy-tagged error. Conflict errors carry the current
// resource_version so callers can retry with a fresh CAS token (spec.md §4.1).
type Error struct {
	Kind            Kind
	Message         string
	CurrentVersion  int64
	Err             error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

// NotFound builds a NotFound error for key.
func NotFound(key string) *Error { return newErr(KindNotFound, "not found: "+key) }

// AlreadyExists builds an AlreadyExists error for key.
func AlreadyExists(key string) *Error { return newErr(KindAlreadyExists, "already exists: "+key) }

// Conflict builds a Conflict error carrying the key's current resource_version.
func Conflict(key string, current int64) *Error {
	return &Error{Kind: KindConflict, Message: "version conflict: " + key, CurrentVersion: current}
}

// Validation wraps a validation failure.
func Validation(err error) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Err: err}
}

// Transient wraps a transient I/O error (network/transport).
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Message: "transient I/O error", Err: err}
}

// Adapter wraps a cluster-native adapter call failure.
func Adapter(err error) *Error {
	return &Error{Kind: KindAdapter, Message: "adapter call failed", Err: err}
}

// Fatal wraps an internal invariant violation; callers should log and exit.
func Fatal(err error) *Error {
	return &Error{Kind: KindFatal, Message: "fatal invariant violation", Err: err}
}

// KindOf extracts the Kind from err, if any, via errors.As.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err's Kind is k.
func Is(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}
