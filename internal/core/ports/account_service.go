package ports

import (
	"context"

	"github.com/bongocat/webapp/internal/core/domain"
)

// RegisterInput carries the raw registration form values.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AccountService drives the account lifecycle. Sessions are passed in and
// returned explicitly; the service never reads or writes cookies.
type AccountService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.Session, error)
	Logout(ctx context.Context, sess *domain.Session)

	// RequestReset mails a reset link when the email is known. The outcome
	// visible to the caller does not depend on whether it was.
	RequestReset(ctx context.Context, email, baseURL string) error
	CheckResetToken(ctx context.Context, token string) (*domain.User, error)
	ConfirmReset(ctx context.Context, token, password, confirm string) error

	Profile(ctx context.Context, sess *domain.Session) (*domain.User, error)
	DeleteConfirmation(ctx context.Context, sess *domain.Session) (*domain.User, error)
	DeleteAccount(ctx context.Context, sess *domain.Session, confirmation, password string) error
}
