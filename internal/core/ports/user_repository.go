package ports

import (
	"context"

	"github.com/bongocat/webapp/internal/core/domain"
)

// UserRepository is the credential store. Uniqueness of username and email
// and the atomicity of score increments are enforced by the implementation.
type UserRepository interface {
	// Create inserts a new user. Returns domain.ErrUserExists when either
	// unique field collides; no partial row is left behind.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	// FindByID, FindByUsername and FindByEmail are exact-match lookups.
	// A missing row is reported as (nil, false, nil).
	FindByID(ctx context.Context, id string) (*domain.User, bool, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, bool, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, bool, error)

	// UpdatePassword replaces the stored hash. Returns domain.ErrUserNotFound
	// when no row matches.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// IncrementScore adds delta in a single atomic read-modify-write and
	// returns the new total. Returns domain.ErrUserNotFound when no row matches.
	IncrementScore(ctx context.Context, id string, delta int64) (int64, error)

	// Delete removes the row. Returns domain.ErrUserNotFound when no row matches.
	Delete(ctx context.Context, id string) error

	// TopScores ranks users by score descending, username ascending.
	TopScores(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)

	Ping(ctx context.Context) error
}
