package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUnauthenticated    = errors.New("not logged in")
	ErrStaleSession       = errors.New("session user no longer exists")

	ErrTokenExpired = errors.New("reset token expired")
	ErrTokenInvalid = errors.New("reset token invalid")

	ErrConfirmationMismatch = errors.New("confirmation did not match username")
	ErrIncorrectPassword    = errors.New("incorrect password")
)

// ValidationError carries a user-facing message about missing or malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ConflictError reports which unique field collided on create. Field is empty
// when the collision could not be attributed after re-querying.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	switch e.Field {
	case "username":
		return "username is already taken"
	case "email":
		return "email is already registered"
	default:
		return "account already exists"
	}
}

func (e *ConflictError) Is(target error) bool { return target == ErrUserExists }
