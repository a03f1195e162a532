package handler

import "github.com/bongocat/webapp/internal/core/domain"

// errorResponse is the JSON error envelope of the score endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Forms ---

type registerForm struct {
	Username string `form:"username" validate:"max=32"`
	Email    string `form:"email"    validate:"max=120"`
	Password string `form:"password"`
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type resetRequestForm struct {
	Email string `form:"email" validate:"max=120"`
}

type resetConfirmForm struct {
	Password  string `form:"password"`
	Password2 string `form:"password2"`
}

type deleteForm struct {
	Confirm  string `form:"confirm"`
	Password string `form:"password"`
}

// --- JSON ---

// syncRequest documents the sync body. delta may be an integer or a numeric
// string; the handler reads it raw.
type syncRequest struct {
	Delta any `json:"delta" swaggertype:"integer" example:"25"`
}

type syncResponse struct {
	// Total is null when the delta was zero.
	Total *int64 `json:"total"`
}

type leaderboardResponse struct {
	Rows []domain.LeaderboardEntry `json:"rows"`
}
