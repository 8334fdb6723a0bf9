package gateway

import (
	"errors"
	"fmt"
)

// ErrCarrierNotConfigured is returned by Send when no carrier credentials are
// present. Maps to a 500 at the HTTP boundary.
var ErrCarrierNotConfigured = errors.New("carrier is not configured")

// ValidationError reports malformed or missing caller input. Maps to 400.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// DeliveryError reports that the carrier rejected or failed the send. Maps to
// 500; no message is appended when this occurs.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("carrier send failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
