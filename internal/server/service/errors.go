package service

import "errors"

// Sentinel errors for the service layer. Handlers map them to HTTP statuses.
var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long and include uppercase, lowercase, number and special character (@$!%*?&)")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("file not found")
	ErrStorageFailure     = errors.New("storage failure")
	ErrUnauthenticated    = errors.New("authentication required")
)
