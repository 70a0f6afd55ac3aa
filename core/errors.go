package core

import (
	"errors"
	"strings"
)

// Error kinds surfaced to callers. Kind doubles as the machine readable
// "error" field and Name is kept as its legacy alias.
const (
	KindNotFound      = "not_found"
	KindConflict      = "conflict"
	KindBadRequest    = "bad_request"
	KindDocValidation = "doc_validation"
)

// badSpecialMember marks structural validation failures so that
// Normalize can tell them apart from plain bad requests.
const badSpecialMember = "Bad special document member"

// Error is a structured store error.
type Error struct {
	// Kind is the machine readable error kind.
	Kind string
	// Name is a legacy alias of Kind.
	Name string
	// Reason is the human readable message.
	Reason string
	// Status is the HTTP style status code for the kind.
	Status int
}

func (e *Error) Error() string {
	return e.Reason
}

// NotFound returns a not_found error with the given reason.
func NotFound(reason string) *Error {
	if reason == "" {
		reason = "missing"
	}
	return &Error{Kind: KindNotFound, Name: KindNotFound, Reason: reason, Status: 404}
}

// Conflict returns a conflict error with the given reason.
func Conflict(reason string) *Error {
	if reason == "" {
		reason = "Document update conflict"
	}
	return &Error{Kind: KindConflict, Name: KindConflict, Reason: reason, Status: 409}
}

// BadRequest returns a bad_request error with the given reason.
func BadRequest(reason string) *Error {
	return &Error{Kind: KindBadRequest, Name: KindBadRequest, Reason: reason, Status: 400}
}

// DocValidation returns a doc_validation error with the given reason.
func DocValidation(reason string) *Error {
	return &Error{Kind: KindDocValidation, Name: KindDocValidation, Reason: reason, Status: 500}
}

// ErrClosed is returned by every operation on a closed store.
func ErrClosed() *Error {
	return BadRequest("database is closed")
}

// Normalize maps an arbitrary error onto the caller facing taxonomy.
// Structured errors pass through; anything else becomes a bad_request
// unless its message matches a recognized structural validation failure.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if strings.Contains(err.Error(), badSpecialMember) {
		return DocValidation(err.Error())
	}
	return BadRequest(err.Error())
}

// IsKind reports whether the error is a structured error of the given
// kind.
func IsKind(err error, kind string) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
