package core

import (
	"errors"
	"fmt"
)

// Sentinel errors form the taxonomy every adapter maps from. Services
// wrap them with context via fmt.Errorf("...: %w", err); handlers match
// with errors.Is.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an absent booking or payment.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an ownership or role violation.
	ErrForbidden = errors.New("forbidden")

	// ErrPaymentExists marks a duplicate payment for a booking.
	ErrPaymentExists = errors.New("payment already exists for this booking")
)

// GatewayError carries a transport failure or non-2xx response from the
// payment provider. It never escapes the gateway adapter unwrapped in
// another type; callers decide the user-facing messaging.
type GatewayError struct {
	// StatusCode is the HTTP status from the provider, 0 if the request
	// never completed.
	StatusCode int
	// Body is the raw response body, if any.
	Body string
	// Err is the underlying transport error, if any.
	Err error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("gateway request failed: %v", e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
