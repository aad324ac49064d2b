// Package apperr defines the error taxonomy shared by the order ledger
// and the confirmation engine.  Every error carries a stable
// machine-readable code plus a human message naming the offending
// identifiers, so handlers can render actionable feedback and map the
// error to an HTTP status without inspecting message text.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindBusiness
	KindConflict
)

// Stable codes exposed to API clients.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeAuthorization = "AUTHORIZATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeBusiness      = "BUSINESS_ERROR"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
)

// Error is the structured error returned by the service layer.  Details
// lists the identifiers the message refers to (duplicate member ids,
// already-booked names, and so on).
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, ", ")
}

// Validation reports malformed input.
func Validation(msg string, details ...string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: msg, Details: details}
}

// Authorization reports a role or membership mismatch.
func Authorization(msg string, details ...string) *Error {
	return &Error{Kind: KindAuthorization, Code: CodeAuthorization, Message: msg, Details: details}
}

// NotFound reports an absent order, user or department.
func NotFound(msg string, details ...string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: msg, Details: details}
}

// Business reports a domain rule violation such as cross-department
// membership or a closed confirmation window.
func Business(msg string, details ...string) *Error {
	return &Error{Kind: KindBusiness, Code: CodeBusiness, Message: msg, Details: details}
}

// Conflict reports a double confirmation or a double booking caught by
// the storage-level uniqueness constraint.
func Conflict(msg string, details ...string) *Error {
	return &Error{Kind: KindConflict, Code: CodeConflict, Message: msg, Details: details}
}

// Internal wraps an unexpected failure behind a generic message so
// storage details never leak to clients.
func Internal(msg string) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg}
}

// From extracts the *Error from err, or wraps err as internal when it
// is not part of the taxonomy.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("internal error")
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(err error) int {
	switch From(err).Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindBusiness:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
