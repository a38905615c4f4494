// internal/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure. Handlers map kinds to HTTP statuses;
// the lobby logic only ever decides the kind, never the transport code.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindUnauthenticated
	KindNotFound
	KindFailedPrecondition
	KindPermissionDenied
	KindResourceExhausted
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindFailedPrecondition:
		return "failed_precondition"
	case KindPermissionDenied:
		return "permission_denied"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a failure with a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// E constructs a kinded error.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or KindInternal for anything untyped
// (infrastructure failures are never the caller's fault).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to its HTTP response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindFailedPrecondition:
		return http.StatusPreconditionFailed
	case KindResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
