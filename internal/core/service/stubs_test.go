package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bongocat/webapp/internal/core/domain"
)

type stubUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int

	// createErr forces Create to fail without inserting.
	createErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("u%d", r.nextID)
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) find(match func(*domain.User) bool) (*domain.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), true, nil
		}
	}
	return nil, false, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, bool, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, bool, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, bool, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) IncrementScore(_ context.Context, id string, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	u.Score += delta
	return u.Score, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) TopScores(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]domain.LeaderboardEntry, 0, len(r.users))
	for _, u := range r.users {
		rows = append(rows, domain.LeaderboardEntry{Username: u.Username, Score: u.Score})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Username < rows[j].Username
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *stubUserRepo) Ping(context.Context) error { return nil }

// stubTokens issues "tok-<uid>" tokens; Verify honours the err override.
type stubTokens struct {
	verifyErr error
	maxAges   []time.Duration
}

func (t *stubTokens) Issue(uid string) (string, error) { return "tok-" + uid, nil }

func (t *stubTokens) Verify(token string, maxAge time.Duration) (string, error) {
	t.maxAges = append(t.maxAges, maxAge)
	if t.verifyErr != nil {
		return "", t.verifyErr
	}
	if len(token) < 5 || token[:4] != "tok-" {
		return "", domain.ErrTokenInvalid
	}
	return token[4:], nil
}

type stubMailer struct {
	sent []domain.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg domain.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubThrottle struct {
	allow bool
	err   error
}

func (t *stubThrottle) Allow(context.Context, string) (bool, error) { return t.allow, t.err }

type stubCache struct {
	rows        map[int][]domain.LeaderboardEntry
	invalidated int
}

func newStubCache() *stubCache {
	return &stubCache{rows: make(map[int][]domain.LeaderboardEntry)}
}

func (c *stubCache) Get(_ context.Context, limit int) ([]domain.LeaderboardEntry, bool, error) {
	rows, ok := c.rows[limit]
	return rows, ok, nil
}

func (c *stubCache) Set(_ context.Context, limit int, rows []domain.LeaderboardEntry) error {
	c.rows[limit] = rows
	return nil
}

func (c *stubCache) Invalidate(context.Context) error {
	c.invalidated++
	c.rows = make(map[int][]domain.LeaderboardEntry)
	return nil
}

var errStoreDown = errors.New("store down")
