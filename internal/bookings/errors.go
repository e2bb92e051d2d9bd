package bookings

import "errors"

var (
	// ErrInvalidRequest is returned when a booking request is incomplete
	ErrInvalidRequest = errors.New("bookings: invalid request")
)
