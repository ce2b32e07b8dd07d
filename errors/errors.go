package errors

import "fmt"

var (
	ErrValidation      = fmt.Errorf("validation failed")
	ErrEmptyText       = fmt.Errorf("%w: text must not be empty", ErrValidation)
	ErrTextTooLong     = fmt.Errorf("%w: text exceeds maximum length", ErrValidation)
	ErrAuthRequired    = fmt.Errorf("authentication required")
	ErrForbidden       = fmt.Errorf("operation not allowed for this user")
	ErrNotFound        = fmt.Errorf("resource not found")
	ErrUsernameTaken   = fmt.Errorf("username already registered")
	ErrBadCredentials  = fmt.Errorf("invalid username or password")
	ErrInvalidPassword = fmt.Errorf("password does not meet complexity requirements")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrRateLimited     = fmt.Errorf("too many requests")
	ErrUnknownAction   = fmt.Errorf("unknown action")
)
