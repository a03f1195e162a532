package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bongocat/webapp/internal/core/domain"
	"github.com/bongocat/webapp/internal/core/ports"
	"github.com/bongocat/webapp/pkg/logger"
)

const (
	defaultResetMaxAge = time.Hour
	defaultSiteName    = "Your Friendly Website"
)

// AccountConfig tunes the account lifecycle.
type AccountConfig struct {
	// ResetMaxAge is how long a reset token stays valid after issuance.
	ResetMaxAge time.Duration
	// SiteName signs the reset mail.
	SiteName string
	// HashCost is the bcrypt cost. Zero means bcrypt.DefaultCost.
	HashCost int
}

// AccountService implements ports.AccountService.
type AccountService struct {
	repo     ports.UserRepository
	tokens   ports.ResetTokenService
	mailer   ports.Mailer
	throttle ports.ResetThrottle
	cache    ports.LeaderboardCache
	cfg      AccountConfig
	log      zerolog.Logger

	// dummyHash is compared against when the username is unknown so both
	// login failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// NewAccountService wires the account lifecycle. throttle and cache may be nil.
func NewAccountService(
	repo ports.UserRepository,
	tokens ports.ResetTokenService,
	mailer ports.Mailer,
	throttle ports.ResetThrottle,
	cache ports.LeaderboardCache,
	cfg AccountConfig,
	log zerolog.Logger,
) *AccountService {
	if cfg.ResetMaxAge <= 0 {
		cfg.ResetMaxAge = defaultResetMaxAge
	}
	if cfg.SiteName == "" {
		cfg.SiteName = defaultSiteName
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if throttle == nil {
		throttle = allowAll{}
	}
	if cache == nil {
		cache = noCache{}
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cfg.HashCost)

	return &AccountService{
		repo:      repo,
		tokens:    tokens,
		mailer:    mailer,
		throttle:  throttle,
		cache:     cache,
		cfg:       cfg,
		log:       logger.Component(log, "account_service"),
		dummyHash: dummy,
	}
}

func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, domain.NewValidationError("", "All fields are required.")
	}
	if utf8.RuneCountInString(username) > domain.MaxUsernameLen {
		return nil, domain.NewValidationError("username", fmt.Sprintf("Username must be at most %d characters.", domain.MaxUsernameLen))
	}
	if utf8.RuneCountInString(email) > domain.MaxEmailLen {
		return nil, domain.NewValidationError("email", fmt.Sprintf("Email must be at most %d characters.", domain.MaxEmailLen))
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, s.resolveConflict(ctx, username, email)
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, nil
}

// resolveConflict re-queries after a rejected insert to tell the caller which
// field collided. The store stays the single source of truth for uniqueness.
func (s *AccountService) resolveConflict(ctx context.Context, username, email string) error {
	if _, found, err := s.repo.FindByUsername(ctx, username); err != nil {
		return fmt.Errorf("register: resolve conflict: %w", err)
	} else if found {
		return &domain.ConflictError{Field: "username"}
	}
	if _, found, err := s.repo.FindByEmail(ctx, email); err != nil {
		return fmt.Errorf("register: resolve conflict: %w", err)
	} else if found {
		return &domain.ConflictError{Field: "email"}
	}
	return &domain.ConflictError{}
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.NewValidationError("", "Username and password are required.")
	}

	user, found, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !found {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return &domain.Session{UserID: user.ID, Username: user.Username}, nil
}

func (s *AccountService) Logout(_ context.Context, sess *domain.Session) {
	if sess != nil {
		s.log.Info().Str("user_id", sess.UserID).Msg("user logged out")
	}
}

func (s *AccountService) RequestReset(ctx context.Context, email, baseURL string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	user, found, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("reset request: %w", err)
	}
	if !found {
		s.log.Debug().Msg("reset requested for unknown email")
		return nil
	}

	allowed, err := s.throttle.Allow(ctx, user.Email)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("reset throttle check failed, sending anyway")
	} else if !allowed {
		s.log.Info().Str("user_id", user.ID).Msg("reset mail throttled")
		return nil
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return fmt.Errorf("reset request: issue token: %w", err)
	}

	link := strings.TrimRight(baseURL, "/") + "/user/reset/" + token
	msg := domain.Message{
		To:      user.Email,
		Subject: "Password reset",
		Body:    resetMailBody(user.Username, link, int(s.cfg.ResetMaxAge/time.Minute), s.cfg.SiteName),
	}

	// The token is valid whether or not delivery works; a failed hand-off is
	// only logged.
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("reset mail dispatch failed")
		return nil
	}

	s.log.Info().Str("user_id", user.ID).Msg("reset link issued")
	return nil
}

func (s *AccountService) CheckResetToken(ctx context.Context, token string) (*domain.User, error) {
	uid, err := s.tokens.Verify(token, s.cfg.ResetMaxAge)
	if err != nil {
		return nil, err
	}

	user, found, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("check reset token: %w", err)
	}
	if !found {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *AccountService) ConfirmReset(ctx context.Context, token, password, confirm string) error {
	user, err := s.CheckResetToken(ctx, token)
	if err != nil {
		return err
	}

	if len(password) < domain.MinPasswordLen {
		return domain.NewValidationError("password", "Password must be at least 8 characters.")
	}
	if password != confirm {
		return domain.NewValidationError("password2", "Passwords do not match.")
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password updated via reset link")
	return nil
}

func (s *AccountService) Profile(ctx context.Context, sess *domain.Session) (*domain.User, error) {
	if sess == nil {
		return nil, nil
	}
	user, found, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if !found {
		return nil, nil
	}
	return user, nil
}

func (s *AccountService) DeleteConfirmation(ctx context.Context, sess *domain.Session) (*domain.User, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	user, found, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("delete confirmation: %w", err)
	}
	if !found {
		return nil, domain.ErrStaleSession
	}
	return user, nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, sess *domain.Session, confirmation, password string) error {
	user, err := s.DeleteConfirmation(ctx, sess)
	if err != nil {
		return err
	}

	if strings.TrimSpace(confirmation) != user.Username {
		return domain.ErrConfirmationMismatch
	}
	if !checkPassword(user.PasswordHash, password) {
		return domain.ErrIncorrectPassword
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrStaleSession
		}
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("leaderboard cache invalidation failed")
	}

	s.log.Info().Str("user_id", user.ID).Msg("account deleted")
	return nil
}

func (s *AccountService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.HashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.NewValidationError("password", "Password is too long.")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
