package errors

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the application layer wraps exactly one of these.
var (
	ErrValidation = errors.New("validation failed")         // User-correctable input problem
	ErrStorage    = errors.New("storage operation failed")  // Task store I/O failure
	ErrDelivery   = errors.New("reminder delivery failed")  // Messenger could not deliver
	ErrScheduling = errors.New("timer registration failed") // Timer engine rejected the task
)

// Reasons, reported verbatim to the user by the interface layer.
var (
	ErrTimeInPast      = errors.New("time in the past")
	ErrInvalidDateTime = errors.New("invalid date/time")
	ErrEmptyTaskName   = errors.New("task name is empty")
	ErrEmptyUserID     = errors.New("user id is empty")
	ErrDuplicateTask   = errors.New("a task with this name is already scheduled")
)

// Validation wraps reason so that it matches both ErrValidation and reason.
func Validation(reason error) error {
	return fmt.Errorf("%w: %w", ErrValidation, reason)
}

// Storage wraps a store failure.
func Storage(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Delivery wraps a messenger failure.
func Delivery(err error) error {
	return fmt.Errorf("%w: %w", ErrDelivery, err)
}

// Scheduling wraps a timer engine failure.
func Scheduling(err error) error {
	return fmt.Errorf("%w: %w", ErrScheduling, err)
}

// Reason returns the user-facing reason carried by a validation error,
// or a generic message for everything else.
func Reason(err error) string {
	for _, reason := range []error{ErrTimeInPast, ErrInvalidDateTime, ErrEmptyTaskName, ErrEmptyUserID, ErrDuplicateTask} {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}
	switch {
	case errors.Is(err, ErrStorage):
		return "could not access saved tasks, please try again later"
	case errors.Is(err, ErrScheduling):
		return "could not schedule the reminder, please try again"
	default:
		return "something went wrong, please try again"
	}
}
