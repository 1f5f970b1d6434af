package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrCourierNotFound = errors.New("courier not found")
	ErrCourierExists   = errors.New("courier already exists")
	ErrStore           = errors.New("store failure")
	ErrDelivery        = errors.New("delivery failed")

	// ErrSubmissionInProgress is returned for a submission whose idempotency
	// key is held by another submission that has not finished.
	ErrSubmissionInProgress = errors.New("submission in progress")
)

// ValidationError reports malformed or out-of-range input. Nothing is
// persisted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StoreError wraps a persistence backend failure.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError returns nil when err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

// DeliveryError is a per-subscriber push failure. It never leaves the hub.
type DeliveryError struct {
	SubscriberID string
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.SubscriberID, e.Err)
}

func (e *DeliveryError) Unwrap() []error { return []error{ErrDelivery, e.Err} }
