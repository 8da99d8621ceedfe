package services

import "errors"

// Domain errors returned by the services. Handlers map them to HTTP statuses
// with errors.Is.
var (
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateTitle     = errors.New("book with this title already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUserNotFound       = errors.New("user not found")
	ErrBookNotFound       = errors.New("book not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("user not authenticated")
	ErrForbidden          = errors.New("not authorized")
	ErrMissingToken       = errors.New("no JWT token found in the request headers")
	ErrInvalidToken       = errors.New("invalid JWT token")
	ErrAlreadyRated       = errors.New("book already rated by this user")
)

// ValidationError describes a rejected input field. It matches
// ErrInvalidArgument under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
