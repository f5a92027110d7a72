package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrConfirmationRequired  = errors.New("confirmation required")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
