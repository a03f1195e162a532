package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/bongocat/webapp/internal/api/session"
)

// Session decodes the session cookie once per request and stores the
// resulting *domain.Session (nil when anonymous) under session.ContextKey.
// It must run after the manager's store middleware.
func Session(m *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(session.ContextKey, m.Current(c))
			return next(c)
		}
	}
}
