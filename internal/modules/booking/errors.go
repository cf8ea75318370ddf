package booking

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrSessionNotFound     = errors.New("session not found or closed")
	ErrDuplicateBooking    = errors.New("active booking already exists for this date")
	ErrSessionFull         = errors.New("session is at capacity")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrLockBusy            = errors.New("booking is busy, try again")
	ErrNotFound            = errors.New("booking not found")
	ErrAccessDenied        = errors.New("booking belongs to another student")
	ErrAlreadyCancelled    = errors.New("booking is not active")
)
