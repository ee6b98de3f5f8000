package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every component. Mutating operations roll back
// fully before any of these is returned; ErrStorage is the only kind a
// caller may reasonably retry, and the core itself never retries.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("storage failure")

	// ErrNoAvailableCopy and ErrNotBorrowed are conflict specializations:
	// errors.Is(err, ErrConflict) holds for both.
	ErrNoAvailableCopy = fmt.Errorf("%w: no copies available for borrowing", ErrConflict)
	ErrNotBorrowed     = fmt.Errorf("%w: copy is not on loan", ErrConflict)
)

// Validationf builds an ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
