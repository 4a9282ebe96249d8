// Package apperr defines the error taxonomy shared by the delivery engine,
// the notification inbox and the HTTP layer. Every failure carried to a
// client is one of these kinds, serialized as {"error":{"kind","message"}}.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindForbidden  Kind = "forbidden"
	KindNotFound   Kind = "not_found"
	// KindLocked is plan-tier gating: same 403 as forbidden but
	// distinguishable so the UI can show the upgrade prompt.
	KindLocked      Kind = "locked"
	KindConflict    Kind = "conflict"
	KindRateLimited Kind = "rate_limited"
	KindTransient   Kind = "transient"
	KindInternal    Kind = "internal"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, v ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, v...)}
}

// Wrap keeps the underlying cause for logs while exposing kind+message to clients.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Locked(message string) *Error     { return New(KindLocked, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }

// KindOf extracts the kind of err, or KindInternal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf extracts the client-facing message, or a generic one.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error kind to its response status. Locked maps to 403
// like forbidden; clients tell them apart by kind.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden, KindLocked:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
