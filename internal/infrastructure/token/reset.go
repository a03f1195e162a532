package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bongocat/webapp/internal/core/domain"
)

// DefaultSalt scopes tokens to the password reset flow.
const DefaultSalt = "pw-reset"

// Claims is the payload of a reset token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// ResetTokens issues and verifies password reset tokens. The signing key is
// derived from the secret and the salt, and the salt is also the audience, so
// a token minted for another purpose never verifies here.
type ResetTokens struct {
	key  []byte
	salt string
	now  func() time.Time
}

type Option func(*ResetTokens)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *ResetTokens) { r.now = now }
}

func NewResetTokens(secret, salt string, opts ...Option) (*ResetTokens, error) {
	if secret == "" {
		return nil, errors.New("reset tokens: empty secret")
	}
	if salt == "" {
		salt = DefaultSalt
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(salt))

	r := &ResetTokens{
		key:  mac.Sum(nil),
		salt: salt,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *ResetTokens) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("reset tokens: empty user id")
	}
	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience: jwt.ClaimStrings{r.salt},
			IssuedAt: jwt.NewNumericDate(r.now()),
		},
		UserID: userID,
	})
	return tkn.SignedString(r.key)
}

// Verify returns the user id carried by token. Any format, signature or
// claim problem is ErrTokenInvalid; a good token older than maxAge is
// ErrTokenExpired.
func (r *ResetTokens) Verify(token string, maxAge time.Duration) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return r.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(r.salt),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(r.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return "", domain.ErrTokenInvalid
	}
	if claims.UserID == "" || claims.IssuedAt == nil {
		return "", domain.ErrTokenInvalid
	}

	if r.now().Sub(claims.IssuedAt.Time) > maxAge {
		return "", domain.ErrTokenExpired
	}
	return claims.UserID, nil
}
