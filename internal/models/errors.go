package models

import (
	"fmt"
)

// NotFoundKind distinguishes which entity a NotFoundError refers to
type NotFoundKind string

const (
	NotFoundUser     NotFoundKind = "user"
	NotFoundTrain    NotFoundKind = "train"
	NotFoundResource NotFoundKind = "resource"
)

// NotFoundError is returned when a referenced entity does not exist
type NotFoundError struct {
	Kind    NotFoundKind
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Kind)
}

// NewUserNotFound returns a NotFoundError for a missing user
func NewUserNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Kind: NotFoundUser, Message: fmt.Sprintf(format, args...)}
}

// NewTrainNotFound returns a NotFoundError for a missing train
func NewTrainNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Kind: NotFoundTrain, Message: fmt.Sprintf(format, args...)}
}

// NewResourceNotFound returns a NotFoundError for any other missing entity
func NewResourceNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Kind: NotFoundResource, Message: fmt.Sprintf(format, args...)}
}

// SeatsNotAvailableError is returned when one or more requested seats are
// already held or booked for the requested travel date
type SeatsNotAvailableError struct {
	SeatIDs    []int64
	TravelDate string
}

func (e *SeatsNotAvailableError) Error() string {
	return fmt.Sprintf("seats %v are not available for travel date %s", e.SeatIDs, e.TravelDate)
}

// LockWaitTimeoutError is returned when seat row locks could not be acquired
// within the configured wait bound. The transaction was rolled back and the
// request is safe to retry.
type LockWaitTimeoutError struct {
	SeatIDs []int64
}

func (e *LockWaitTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for locks on seats %v, retry the request", e.SeatIDs)
}

// BookingAccessDeniedError is returned when a caller tries to manage a
// booking that belongs to another user
type BookingAccessDeniedError struct {
	PNR string
}

func (e *BookingAccessDeniedError) Error() string {
	return fmt.Sprintf("booking %s belongs to another user", e.PNR)
}

// InvalidBookingRequestError is returned when a booking request fails
// structural validation before any seat is touched
type InvalidBookingRequestError struct {
	Message string
}

func (e *InvalidBookingRequestError) Error() string {
	return e.Message
}

// InvalidPaymentMetadataError is returned when a gateway session's metadata
// is missing or malformed. Field names the offending metadata key.
type InvalidPaymentMetadataError struct {
	Field   string
	Message string
}

func (e *InvalidPaymentMetadataError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid payment metadata field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid payment metadata field %q", e.Field)
}

// PaymentNotCompletedError is returned when a gateway session has not been paid
type PaymentNotCompletedError struct {
	SessionID string
	Status    string
}

func (e *PaymentNotCompletedError) Error() string {
	return fmt.Sprintf("payment for session %s is not completed (status: %s)", e.SessionID, e.Status)
}

// DuplicatePaymentConfirmationError is returned when a booking already exists
// for the gateway session being confirmed
type DuplicatePaymentConfirmationError struct {
	SessionID string
}

func (e *DuplicatePaymentConfirmationError) Error() string {
	return fmt.Sprintf("booking for session %s has already been confirmed", e.SessionID)
}

// BookingPersistenceError is returned when the commit path exhausts its PNR
// regeneration attempts
type BookingPersistenceError struct {
	Attempts int
	Err      error
}

func (e *BookingPersistenceError) Error() string {
	return fmt.Sprintf("failed to persist booking after %d attempts: %v", e.Attempts, e.Err)
}

func (e *BookingPersistenceError) Unwrap() error {
	return e.Err
}

// GatewayError wraps a transport or API failure from the payment gateway.
// These are retryable from the caller's point of view.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error during %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
