package domain

import "time"

// Field limits enforced at the edge, mirrored by the store schemas.
const (
	MaxUsernameLen = 32
	MaxEmailLen    = 120
	MinPasswordLen = 8
)

// User models one account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Score        int64     `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is the identity carried by the client-held session artifact.
type Session struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// Message is an outbound mail handed to the mail collaborator.
type Message struct {
	To      string
	Subject string
	Body    string
}
