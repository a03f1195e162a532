// Package session keeps the logged-in identity in a signed client-side
// cookie. Handlers read it through Current and hand the result to the
// services explicitly.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/gob"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/bongocat/webapp/internal/core/domain"
)

const (
	keyUserID   = "user_id"
	keyUsername = "username"

	// ContextKey is where middleware.Session stores the decoded *domain.Session.
	ContextKey = "session"
)

// Flash kinds.
const (
	FlashOK   = "ok"
	FlashWarn = "warn"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

var errNoStore = errors.New("session: store middleware not installed")

func init() {
	gob.Register(Flash{})
}

type Options struct {
	Name   string
	MaxAge time.Duration
	// Secure sets the cookie's Secure flag. Off in development.
	Secure bool
}

// NewCookieStore returns a cookie store whose signing key is derived from
// secret, so the same SECRET_KEY can also sign reset tokens without the two
// keys ever being equal.
func NewCookieStore(secret string, opts Options) *sessions.CookieStore {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("session-cookie"))

	store := sessions.NewCookieStore(mac.Sum(nil))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Manager reads and writes the session cookie for one request at a time.
// The store must also be installed with Middleware.
type Manager struct {
	store sessions.Store
	name  string
}

func NewManager(store sessions.Store, name string) *Manager {
	if name == "" {
		name = "session"
	}
	return &Manager{store: store, name: name}
}

// Middleware installs the store on the echo context.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return echosession.Middleware(m.store)
}

func (m *Manager) get(c echo.Context) (*sessions.Session, error) {
	return echosession.Get(m.name, c)
}

// Start binds sess to the cookie, replacing any previous identity.
func (m *Manager) Start(c echo.Context, sess domain.Session) error {
	s, _ := m.get(c)
	if s == nil {
		return errNoStore
	}
	s.Values[keyUserID] = sess.UserID
	s.Values[keyUsername] = sess.Username
	return s.Save(c.Request(), c.Response())
}

// Current returns the identity in the cookie, or nil when the cookie is
// absent, tampered with or carries no identity.
func (m *Manager) Current(c echo.Context) *domain.Session {
	s, err := m.get(c)
	if err != nil || s == nil {
		return nil
	}
	uid, _ := s.Values[keyUserID].(string)
	username, _ := s.Values[keyUsername].(string)
	if uid == "" {
		return nil
	}
	return &domain.Session{UserID: uid, Username: username}
}

// End drops everything in the session. The cookie itself stays so that a
// flash added afterwards still reaches the next page.
func (m *Manager) End(c echo.Context) error {
	s, _ := m.get(c)
	if s == nil {
		return errNoStore
	}
	for k := range s.Values {
		delete(s.Values, k)
	}
	return s.Save(c.Request(), c.Response())
}

func (m *Manager) Flash(c echo.Context, kind, message string) error {
	s, _ := m.get(c)
	if s == nil {
		return errNoStore
	}
	s.AddFlash(Flash{Kind: kind, Message: message})
	return s.Save(c.Request(), c.Response())
}

// Flashes pops all pending flashes.
func (m *Manager) Flashes(c echo.Context) []Flash {
	s, _ := m.get(c)
	if s == nil {
		return nil
	}
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = s.Save(c.Request(), c.Response())

	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}

// FromContext returns the session stored by middleware.Session.
func FromContext(c echo.Context) *domain.Session {
	sess, _ := c.Get(ContextKey).(*domain.Session)
	return sess
}
