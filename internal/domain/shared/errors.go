// Package shared contains the error taxonomy used across the notifier:
// sentinel kinds for errors.Is() checks and DomainError, which carries the
// failing operation and the underlying cause.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the poller wraps exactly one of them.
var (
	// ErrMissingCredentials is fatal and only raised before polling starts.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrTransport means the status endpoint could not be reached at all.
	ErrTransport = errors.New("transport failure")

	// ErrEndpointUnavailable means the endpoint answered with a non-success status.
	ErrEndpointUnavailable = errors.New("endpoint unavailable")

	// ErrSchema means the payload does not have the expected shape.
	ErrSchema = errors.New("unexpected response schema")

	// ErrDelivery means the chat transport did not deliver a message.
	ErrDelivery = errors.New("message not delivered")
)

// DomainError represents an error with the context it was raised in.
type DomainError struct {
	Domain  string // e.g., "homework", "practicum", "telegram"
	Op      string // Operation that failed, e.g., "Validate", "Fetch"
	Kind    error  // Base error kind for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against both the kind and the cause.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// SchemaError is a shorthand for a schema violation found while handling a payload.
func SchemaError(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrSchema, fmt.Sprintf(format, args...))
}

// IsSchema reports whether err is a payload shape violation.
func IsSchema(err error) bool {
	return errors.Is(err, ErrSchema)
}

// IsDelivery reports whether err is a chat delivery failure.
func IsDelivery(err error) bool {
	return errors.Is(err, ErrDelivery)
}

// IsMissingCredentials reports whether err is the fatal startup error.
func IsMissingCredentials(err error) bool {
	return errors.Is(err, ErrMissingCredentials)
}

// IsTransient reports whether err comes from reaching the status endpoint.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrEndpointUnavailable)
}

// Kind returns a short label for the error class, used in logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrDelivery):
		return "delivery"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrEndpointUnavailable):
		return "endpoint_unavailable"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unexpected"
	}
}
