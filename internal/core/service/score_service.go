package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bongocat/webapp/internal/core/domain"
	"github.com/bongocat/webapp/internal/core/ports"
	"github.com/bongocat/webapp/pkg/logger"
)

// ScoreService implements ports.ScoreService.
type ScoreService struct {
	repo  ports.UserRepository
	cache ports.LeaderboardCache
	log   zerolog.Logger
}

// NewScoreService returns the score ledger. cache may be nil.
func NewScoreService(repo ports.UserRepository, cache ports.LeaderboardCache, log zerolog.Logger) *ScoreService {
	if cache == nil {
		cache = noCache{}
	}
	return &ScoreService{
		repo:  repo,
		cache: cache,
		log:   logger.Component(log, "score_service"),
	}
}

// Sync validates the delta before touching the store: unauthenticated, then
// unparsable, then zero (no-op), then out of bounds.
func (s *ScoreService) Sync(ctx context.Context, sess *domain.Session, rawDelta string) (*int64, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}

	delta, err := domain.ParseDelta(rawDelta)
	if err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, nil
	}
	if err := domain.CheckDelta(delta); err != nil {
		return nil, err
	}

	total, err := s.repo.IncrementScore(ctx, sess.UserID, delta)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrStaleSession
		}
		return nil, fmt.Errorf("sync score: %w", err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("leaderboard cache invalidation failed")
	}

	s.log.Debug().Str("user_id", sess.UserID).Int64("delta", delta).Int64("total", total).Msg("score synced")
	return &total, nil
}

func (s *ScoreService) Score(ctx context.Context, sess *domain.Session) (*int64, error) {
	if sess == nil {
		return nil, nil
	}
	user, found, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	if !found {
		return nil, nil
	}
	score := user.Score
	return &score, nil
}

// Leaderboard returns up to limit rows, score descending and username
// ascending. A non-positive limit falls back to the default.
func (s *ScoreService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultLeaderboardLimit
	}

	if rows, ok, err := s.cache.Get(ctx, limit); err != nil {
		s.log.Warn().Err(err).Msg("leaderboard cache read failed")
	} else if ok {
		return rows, nil
	}

	rows, err := s.repo.TopScores(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	// A sync that invalidates between TopScores and Set leaves these rows
	// cached until the TTL expires. Staleness is bounded by that TTL.
	if err := s.cache.Set(ctx, limit, rows); err != nil {
		s.log.Warn().Err(err).Msg("leaderboard cache write failed")
	}
	return rows, nil
}
