package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches nothing
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when the users.email unique index rejects an insert
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrMalformedRef is returned when a patient ref is not a valid ObjectID
	ErrMalformedRef = errors.New("malformed patient ref")
)
