package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrEventClosed          = errors.New("event is not open for booking")
	ErrEventExpired         = errors.New("event has already started")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrValidation           = errors.New("invalid request")
	ErrRateLimited          = errors.New("too many booking attempts")
	ErrForbidden            = errors.New("reservation belongs to another customer")
	ErrStorageUnavailable   = errors.New("storage temporarily unavailable")
)

// CapacityError reports a reserve attempt that exceeded the remaining
// capacity. Remaining is the exact count observed under the event lock.
type CapacityError struct {
	Requested int
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: requested %d, remaining %d", e.Requested, e.Remaining)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrInsufficientCapacity
}

// Validation wraps ErrValidation with detail so callers can still match it
// with errors.Is.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
