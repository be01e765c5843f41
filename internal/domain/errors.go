package domain

import (
	"errors"
	"fmt"
)

// Validation reasons
const (
	ReasonRequired = "required"
	ReasonImage    = "image"
	ReasonPrice    = "price"
	ReasonCategory = "category"
	ReasonMissing  = "missing"
	ReasonSize     = "size"
	ReasonType     = "type"
	ReasonRead     = "read"
)

// ValidationError is a client-side rejection. Message is shown to the user as is.
type ValidationError struct {
	Field   string
	Reason  string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BackendError wraps a failed datastore or auth call
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err unless it is nil
func NewBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}

// IsValidation reports whether err carries a ValidationError and returns it
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsBackend reports whether err carries a BackendError
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
