package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyBooked     = errors.New("user already has an active booking for this event")
	ErrCapacityExceeded  = errors.New("event capacity exceeded")
	ErrInvalidTimeRange  = errors.New("invalid time range")
	ErrInvalidCategory   = errors.New("invalid event category")
	ErrTitleRequired     = errors.New("event title is required")
	ErrRemoteUnavailable = errors.New("remote service unavailable")
	ErrNotFound          = errors.New("not found")
	ErrNoCurrentUser     = errors.New("no authenticated user")
	ErrNotAdmin          = errors.New("admin role required")
)

// BookingRequestError reports a remote booking creation that failed after
// the optimistic insert was rolled back.
type BookingRequestError struct {
	Cause error
}

func (e BookingRequestError) Error() string {
	return fmt.Sprintf("booking request failed: %v", e.Cause)
}

func (e BookingRequestError) Unwrap() error { return e.Cause }

// CancelRequestError reports a remote cancellation failure after the
// optimistic removal was restored.
type CancelRequestError struct {
	Cause error
}

func (e CancelRequestError) Error() string {
	return fmt.Sprintf("cancel request failed: %v", e.Cause)
}

func (e CancelRequestError) Unwrap() error { return e.Cause }

// ApproveRequestError reports a remote approval failure after the
// optimistic status change was reverted.
type ApproveRequestError struct {
	Cause error
}

func (e ApproveRequestError) Error() string {
	return fmt.Sprintf("approve request failed: %v", e.Cause)
}

func (e ApproveRequestError) Unwrap() error { return e.Cause }
