package service

import (
	"context"

	"github.com/bongocat/webapp/internal/core/domain"
)

type allowAll struct{}

func (allowAll) Allow(context.Context, string) (bool, error) { return true, nil }

type noCache struct{}

func (noCache) Get(context.Context, int) ([]domain.LeaderboardEntry, bool, error) {
	return nil, false, nil
}

func (noCache) Set(context.Context, int, []domain.LeaderboardEntry) error { return nil }

func (noCache) Invalidate(context.Context) error { return nil }
