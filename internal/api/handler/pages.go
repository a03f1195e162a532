package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bongocat/webapp/internal/api/session"
	"github.com/bongocat/webapp/internal/api/view"
)

// PageHandler serves the static pages.
type PageHandler struct {
	sessions *session.Manager
}

func NewPageHandler(sessions *session.Manager) *PageHandler {
	return &PageHandler{sessions: sessions}
}

func (h *PageHandler) render(c echo.Context, name, title string) error {
	return c.Render(http.StatusOK, name, view.Page{
		Title:   title,
		Session: ctxSession(c),
		Flashes: h.sessions.Flashes(c),
	})
}

func (h *PageHandler) Home(c echo.Context) error  { return h.render(c, "home", "Home") }
func (h *PageHandler) About(c echo.Context) error { return h.render(c, "about", "About") }
