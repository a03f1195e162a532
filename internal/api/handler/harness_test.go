package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bongocat/webapp/internal/api/session"
	"github.com/bongocat/webapp/internal/api/view"
	"github.com/bongocat/webapp/internal/core/domain"
)

// harness runs handlers behind the same session plumbing the router installs.
type harness struct {
	e        *echo.Echo
	sessions *session.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	r, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	e.Validator = NewValidator()

	store := session.NewCookieStore("test-secret", session.Options{MaxAge: time.Hour})
	return &harness{e: e, sessions: session.NewManager(store, "session")}
}

func (h *harness) serve(t *testing.T, fn echo.HandlerFunc, req *http.Request, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	c := h.e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}

	wrapped := h.sessions.Middleware()(func(c echo.Context) error {
		c.Set(session.ContextKey, h.sessions.Current(c))
		return fn(c)
	})
	if err := wrapped(c); err != nil {
		h.e.HTTPErrorHandler(err, c)
	}
	return rec
}

// cookie returns the last session cookie written by rec.
func cookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var last *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "session" {
			last = ck
		}
	}
	if last == nil {
		t.Fatalf("no session cookie written")
	}
	return last
}

// loginCookie returns a cookie carrying sess.
func (h *harness) loginCookie(t *testing.T, sess domain.Session) *http.Cookie {
	t.Helper()
	rec := h.serve(t, func(c echo.Context) error {
		return h.sessions.Start(c, sess)
	}, httptest.NewRequest(http.MethodGet, "/", nil))
	return cookie(t, rec)
}

// replay decodes the session and pending flashes a browser would send back
// after receiving rec.
func (h *harness) replay(t *testing.T, rec *httptest.ResponseRecorder) (*domain.Session, []session.Flash) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie(t, rec))

	var (
		sess    *domain.Session
		flashes []session.Flash
	)
	h.serve(t, func(c echo.Context) error {
		sess = ctxSession(c)
		flashes = h.sessions.Flashes(c)
		return nil
	}, req)
	return sess, flashes
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, to string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != to {
		t.Fatalf("expected redirect to %s, got %s", to, loc)
	}
}

func assertFlash(t *testing.T, flashes []session.Flash, kind, msg string) {
	t.Helper()
	for _, f := range flashes {
		if f.Kind == kind && f.Message == msg {
			return
		}
	}
	t.Fatalf("expected %s flash %q, got %+v", kind, msg, flashes)
}
