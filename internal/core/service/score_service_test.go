package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bongocat/webapp/internal/core/domain"
)

func seedUser(t *testing.T, repo *stubUserRepo, username string, score int64) *domain.Session {
	t.Helper()
	u, err := repo.Create(context.Background(), &domain.User{
		Username:  username,
		Email:     username + "@example.com",
		Score:     score,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return &domain.Session{UserID: u.ID, Username: u.Username}
}

func TestScoreService_Sync_Validation(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewScoreService(repo, nil, zerolog.Nop())
	sess := seedUser(t, repo, "alice", 0)

	tests := []struct {
		name    string
		sess    *domain.Session
		raw     string
		wantErr error
	}{
		{name: "anonymous", sess: nil, raw: "5", wantErr: domain.ErrUnauthenticated},
		{name: "anonymous with garbage", sess: nil, raw: "abc", wantErr: domain.ErrUnauthenticated},
		{name: "not a number", sess: sess, raw: "abc", wantErr: domain.ErrBadDelta},
		{name: "negative", sess: sess, raw: "-1", wantErr: domain.ErrNegativeDelta},
		{name: "too large", sess: sess, raw: "1001", wantErr: domain.ErrDeltaTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := svc.Sync(context.Background(), tt.sess, tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, total)
		})
	}

	u, _, _ := repo.FindByID(context.Background(), sess.UserID)
	assert.Equal(t, int64(0), u.Score, "rejected deltas must not touch the score")
}

func TestScoreService_Sync_ZeroIsNoop(t *testing.T) {
	repo := newStubUserRepo()
	cache := newStubCache()
	svc := NewScoreService(repo, cache, zerolog.Nop())
	sess := seedUser(t, repo, "alice", 7)

	for _, raw := range []string{"", "0", " 0 "} {
		total, err := svc.Sync(context.Background(), sess, raw)
		require.NoError(t, err)
		assert.Nil(t, total)
	}
	assert.Zero(t, cache.invalidated)

	score, err := svc.Score(context.Background(), sess)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, int64(7), *score)
}

func TestScoreService_Sync_Accumulates(t *testing.T) {
	repo := newStubUserRepo()
	cache := newStubCache()
	svc := NewScoreService(repo, cache, zerolog.Nop())
	sess := seedUser(t, repo, "alice", 0)

	total, err := svc.Sync(context.Background(), sess, "500")
	require.NoError(t, err)
	require.NotNil(t, total)
	assert.Equal(t, int64(500), *total)

	total, err = svc.Sync(context.Background(), sess, "500")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), *total)

	total, err = svc.Sync(context.Background(), sess, "1000")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), *total, "the bound applies per report, not to the total")

	assert.Equal(t, 3, cache.invalidated)
}

func TestScoreService_Sync_StaleSession(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewScoreService(repo, nil, zerolog.Nop())

	total, err := svc.Sync(context.Background(), &domain.Session{UserID: "gone", Username: "ghost"}, "3")
	assert.ErrorIs(t, err, domain.ErrStaleSession)
	assert.Nil(t, total)
}

func TestScoreService_Score_Anonymous(t *testing.T) {
	svc := NewScoreService(newStubUserRepo(), nil, zerolog.Nop())

	score, err := svc.Score(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, score)

	score, err = svc.Score(context.Background(), &domain.Session{UserID: "gone"})
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestScoreService_Leaderboard_Ordering(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewScoreService(repo, nil, zerolog.Nop())
	seedUser(t, repo, "carol", 10)
	seedUser(t, repo, "bob", 50)
	seedUser(t, repo, "alice", 50)

	rows, err := svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.LeaderboardEntry{
		{Username: "alice", Score: 50},
		{Username: "bob", Score: 50},
		{Username: "carol", Score: 10},
	}, rows)

	rows, err = svc.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestScoreService_Leaderboard_DefaultLimit(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewScoreService(repo, nil, zerolog.Nop())
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		seedUser(t, repo, name, 1)
	}

	rows, err := svc.Leaderboard(context.Background(), -3)
	require.NoError(t, err)
	assert.Len(t, rows, domain.DefaultLeaderboardLimit)
}

func TestScoreService_Leaderboard_UsesCache(t *testing.T) {
	repo := newStubUserRepo()
	cache := newStubCache()
	svc := NewScoreService(repo, cache, zerolog.Nop())
	sess := seedUser(t, repo, "alice", 5)

	rows, err := svc.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, cache.rows, 10, "miss should populate the cache")

	cache.rows[10] = []domain.LeaderboardEntry{{Username: "cached", Score: 99}}
	rows, err = svc.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "cached", rows[0].Username)

	_, err = svc.Sync(context.Background(), sess, "1")
	require.NoError(t, err)
	rows, err = svc.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, domain.LeaderboardEntry{Username: "alice", Score: 6}, rows[0])
}

type failingRepo struct {
	*stubUserRepo
}

func (failingRepo) TopScores(context.Context, int) ([]domain.LeaderboardEntry, error) {
	return nil, errStoreDown
}

func TestScoreService_Leaderboard_StoreError(t *testing.T) {
	svc := NewScoreService(failingRepo{newStubUserRepo()}, nil, zerolog.Nop())

	_, err := svc.Leaderboard(context.Background(), 10)
	assert.True(t, errors.Is(err, errStoreDown))
}
