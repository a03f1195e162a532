package ports

import (
	"context"

	"github.com/bongocat/webapp/internal/core/domain"
)

// ScoreService is the score ledger.
type ScoreService interface {
	// Sync applies a client-reported delta. A zero delta returns (nil, nil).
	Sync(ctx context.Context, sess *domain.Session, rawDelta string) (*int64, error)
	// Score returns the session user's score, or nil when there is none.
	Score(ctx context.Context, sess *domain.Session) (*int64, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// LeaderboardCache holds recently computed leaderboards.
type LeaderboardCache interface {
	Get(ctx context.Context, limit int) ([]domain.LeaderboardEntry, bool, error)
	Set(ctx context.Context, limit int, rows []domain.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}
