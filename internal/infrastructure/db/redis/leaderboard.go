package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bongocat/webapp/internal/core/domain"
)

const leaderboardPrefix = "leaderboard:"

// LeaderboardCache stores a JSON snapshot of the top rows per limit.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) Get(ctx context.Context, limit int) ([]domain.LeaderboardEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leaderboard cache get: %w", err)
	}

	var rows []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, fmt.Errorf("leaderboard cache decode: %w", err)
	}
	return rows, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, limit int, rows []domain.LeaderboardEntry) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("leaderboard cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(limit), raw, c.ttl).Err()
}

// Invalidate drops every cached snapshot regardless of limit.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, leaderboardPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("leaderboard cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *LeaderboardCache) key(limit int) string {
	return leaderboardPrefix + strconv.Itoa(limit)
}
