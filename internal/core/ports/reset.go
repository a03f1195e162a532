package ports

import (
	"context"
	"time"

	"github.com/bongocat/webapp/internal/core/domain"
)

// ResetTokenService issues and verifies signed, time-limited reset tokens.
type ResetTokenService interface {
	Issue(userID string) (string, error)
	// Verify returns the user id carried by token, or domain.ErrTokenExpired /
	// domain.ErrTokenInvalid.
	Verify(token string, maxAge time.Duration) (string, error)
}

// Mailer is the outbound mail collaborator. Delivery is best-effort.
type Mailer interface {
	Send(ctx context.Context, msg domain.Message) error
}

// ResetThrottle limits how often reset mail goes to the same address.
type ResetThrottle interface {
	Allow(ctx context.Context, email string) (bool, error)
}
