// Package apperr defines the error kinds every operation reports to callers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the machine-distinguishable class of a failure.
type Kind string

const (
	KindValidation     Kind = "ValidationError"
	KindAuthentication Kind = "AuthenticationError"
	KindAuthorization  Kind = "AuthorizationError"
	KindNotFound       Kind = "NotFoundError"
	KindAuthProvider   Kind = "AuthProviderError"
	KindStorage        Kind = "StorageError"
	KindInternal       Kind = "InternalError"
)

// Error carries a kind, a message shown to the caller verbatim, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func Authentication(message string) error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func Authorization(message string) error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// AuthProvider wraps an identity provider failure, keeping its message.
func AuthProvider(err error) error {
	return &Error{Kind: KindAuthProvider, Message: err.Error(), Err: err}
}

// Storage wraps a key-value or object store failure, keeping its message.
func Storage(err error) error {
	return &Error{Kind: KindStorage, Message: err.Error(), Err: err}
}

func Internal(err error) error {
	return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
}

// KindOf reports the kind of err. Untyped errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Status maps a kind onto its HTTP status class.
func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
