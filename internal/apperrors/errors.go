// Package apperrors defines the error kinds shared by repositories, services
// and handlers. Callers test kinds with errors.Is and never compare strings.
package apperrors

import (
	"errors"
	"fmt"
)

// Kinds. Every *Error carries exactly one of these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrExternalService = errors.New("external service failure")
	ErrInternal        = errors.New("internal error")
)

// Domain errors with a fixed kind and message.
var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so the two cases stay indistinguishable.
	ErrInvalidCredentials = &Error{Kind: ErrUnauthenticated, Message: "invalid credentials"}

	ErrEmailTaken = &Error{
		Kind:    ErrValidation,
		Message: "email is already registered",
		Fields:  map[string]string{"email": "email is already registered"},
	}
)

// Error is a classified error. Message is safe to show to clients; Cause is
// kept for logs only.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Is matches the kind as well as the error value itself.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e == t
	}
	return errors.Is(e.Kind, target)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an error of the given kind.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind that keeps cause for logging.
func Wrap(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation creates a validation error with per-field messages.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: "invalid request", Fields: fields}
}

// NotFound creates a not-found error for the named resource.
func NotFound(resource string) *Error {
	return &Error{Kind: ErrNotFound, Message: resource + " not found"}
}

// Kind returns the kind of err, or ErrInternal when err is unclassified.
func Kind(err error) error {
	for _, k := range []error{
		ErrValidation, ErrUnauthenticated, ErrForbidden, ErrNotFound,
		ErrRateLimited, ErrExternalService,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
