package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetThrottle limits reset mails to one per address per window.
// Key format: reset:<sha256(email)>, so addresses never appear in Redis.
type ResetThrottle struct {
	client *redis.Client
	window time.Duration
}

func NewResetThrottle(client *redis.Client, window time.Duration) *ResetThrottle {
	return &ResetThrottle{client: client, window: window}
}

// Allow reports whether a mail may go out now and, if so, claims the window.
func (t *ResetThrottle) Allow(ctx context.Context, email string) (bool, error) {
	ok, err := t.client.SetNX(ctx, t.key(email), "1", t.window).Result()
	if err != nil {
		return false, fmt.Errorf("reset throttle: %w", err)
	}
	return ok, nil
}

func (t *ResetThrottle) key(email string) string {
	sum := sha256.Sum256([]byte(email))
	return "reset:" + hex.EncodeToString(sum[:])
}
