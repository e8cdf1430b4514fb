package docstore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/docgate/docgate/internal/refguard"
)

// Kind classifies an operation failure. Callers branch on it; the HTTP
// boundary maps it to a status code.
type Kind int

const (
	KindStore Kind = iota
	KindAuthorization
	KindUsage
	KindReferential
	KindNotFound
)

// Error is the failure type every docstore and trash operation returns.
// Referential conflicts carry the usage report so the caller can resolve
// dependents first.
type Error struct {
	Kind    Kind
	Message string
	Usage   []refguard.Usage
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error kind onto the status the HTTP boundary reports.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuthorization:
		return http.StatusUnauthorized
	case KindUsage:
		return http.StatusBadRequest
	case KindReferential:
		return http.StatusLocked
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func ErrAuthorization(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func ErrUsage(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUsage, Message: fmt.Sprintf(format, args...)}
}

func ErrNotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func ErrReferential(usage []refguard.Usage) *Error {
	return &Error{Kind: KindReferential, Message: "document is still referenced", Usage: usage}
}

// ErrStore wraps a failed call into the underlying store.
func ErrStore(op string, err error) *Error {
	return &Error{Kind: KindStore, Message: op + " failed", cause: err}
}

func wrapStore(op string, err error) *Error { return ErrStore(op, err) }

// KindOf extracts the Kind from err, defaulting to KindStore for anything
// that is not a docstore error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}
