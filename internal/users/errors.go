package users

import "errors"

var (
	// ErrUserNotFound is returned when no user carries the LINE id
	ErrUserNotFound = errors.New("users: user not found")

	// ErrMissingLineID is returned when a write has no LINE user id
	ErrMissingLineID = errors.New("users: line user id is required")
)
