package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bongocat/webapp/internal/core/domain"
)

type UserRepository struct {
	db        *sql.DB
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, writeLock: new(sync.Mutex)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	created := *user
	created.ID = ulid.Make().String()
	created.CreatedAt = time.Unix(user.CreatedAt.Unix(), 0).UTC()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, score, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		created.ID, created.Username, created.Email, created.PasswordHash, created.Score, created.CreatedAt.Unix(),
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				return nil, domain.ErrUserExists
			}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &created, nil
}

func (r *UserRepository) findOne(ctx context.Context, column, value string) (*domain.User, bool, error) {
	var (
		u       domain.User
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, score, created_at FROM users WHERE "+column+" = ?",
		value,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Score, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return &u, true, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, bool, error) {
	return r.findOne(ctx, "id", id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, bool, error) {
	return r.findOne(ctx, "username", username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	return r.findOne(ctx, "email", email)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	n, err := r.exec(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) IncrementScore(ctx context.Context, id string, delta int64) (int64, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	var total int64
	err := r.db.QueryRowContext(ctx,
		"UPDATE users SET score = score + ? WHERE id = ? RETURNING score",
		delta, id,
	).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("increment score: %w", err)
	}
	return total, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	n, err := r.exec(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) TopScores(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT username, score FROM users ORDER BY score DESC, username ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Score); err != nil {
			return nil, fmt.Errorf("top scores scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top scores rows: %w", err)
	}
	return entries, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
