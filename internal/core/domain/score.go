package domain

import (
	"errors"
	"strconv"
	"strings"
)

// MaxScoreDelta bounds a single sync report.
const MaxScoreDelta = 1000

// DefaultLeaderboardLimit is the number of rows shown on the leaderboard.
const DefaultLeaderboardLimit = 10

var (
	ErrBadDelta      = errors.New("bad_delta")
	ErrNegativeDelta = errors.New("negative_delta_forbidden")
	ErrDeltaTooLarge = errors.New("delta_too_large")
)

// ParseDelta parses a client-reported score delta. An empty value means the
// client sent no delta and is treated as zero.
func ParseDelta(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrBadDelta
	}
	return n, nil
}

// CheckDelta applies the ledger policy to a parsed delta. A zero delta is a
// valid no-op and returns nil.
func CheckDelta(delta int64) error {
	switch {
	case delta < 0:
		return ErrNegativeDelta
	case delta > MaxScoreDelta:
		return ErrDeltaTooLarge
	}
	return nil
}
