package service

import "errors"

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrMalformedInput     = errors.New("malformed input")
	ErrNotFound           = errors.New("not found")
)
