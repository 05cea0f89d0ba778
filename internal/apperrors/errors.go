package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the order lifecycle. The state machine and penalty
// calculator never suppress these; the API layer translates them into
// responses, and the sweeper logs and skips per item.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
)

// NotFound reports a missing order, book or user.
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
}

// InvalidTransition reports a state precondition violation, naming the
// attempted transition and the order's current state.
func InvalidTransition(op, current string) error {
	return fmt.Errorf("%w: cannot %s order in state %s", ErrInvalidTransition, op, current)
}

// Forbidden reports a failed role or ownership check.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// Conflict reports a lost optimistic-concurrency race; the caller may retry.
func Conflict(op string, orderID int64) error {
	return fmt.Errorf("%w: order %d changed concurrently during %s", ErrConflict, orderID, op)
}

// BookingConflict reports a lost race creating an order: another active
// order for the same user and book landed since the precondition check.
func BookingConflict(bookID int64) error {
	return fmt.Errorf("%w: book %d was booked concurrently", ErrConflict, bookID)
}

// Validation reports malformed input, e.g. a rating outside [0,5].
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// IsRetryable reports whether the caller can retry the same request as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
