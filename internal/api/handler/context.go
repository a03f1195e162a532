package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/bongocat/webapp/internal/api/session"
	"github.com/bongocat/webapp/internal/core/domain"
)

// ctxSession returns the identity decoded by middleware.Session, or nil for
// anonymous requests.
func ctxSession(c echo.Context) *domain.Session {
	return session.FromContext(c)
}

// baseURL returns the absolute origin used in mailed links. A configured
// public URL wins over the request's own scheme and host.
func baseURL(c echo.Context, configured string) string {
	if configured != "" {
		return configured
	}
	return c.Scheme() + "://" + c.Request().Host
}
