package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bongocat/webapp/internal/api/handler"
	"github.com/bongocat/webapp/internal/api/session"
	"github.com/bongocat/webapp/internal/core/domain"
	"github.com/bongocat/webapp/internal/core/service"
	"github.com/bongocat/webapp/internal/infrastructure/db/migrations"
	"github.com/bongocat/webapp/internal/infrastructure/db/sqlite"
	"github.com/bongocat/webapp/internal/infrastructure/token"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []domain.Message
}

func (m *recordingMailer) Send(_ context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) sync(body string) (int, string) {
	req, err := http.NewRequest(http.MethodPost, b.base+"/bongo_cat/sync", strings.NewReader(body))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, out := b.do(req)
	return resp.StatusCode, strings.TrimSpace(out)
}

// TestRouter_EndToEnd drives the whole app over HTTP against a real SQLite
// store. The router registers its Prometheus collectors globally, so it is
// built once.
func TestRouter_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "e2e.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = migrations.Up(ctx, db, migrations.SQLite)
	require.NoError(t, err)

	users := sqlite.NewUserRepository(db)
	tokens, err := token.NewResetTokens("e2e-secret", token.DefaultSalt)
	require.NoError(t, err)
	mailer := &recordingMailer{}

	accounts := service.NewAccountService(users, tokens, mailer, nil, nil, service.AccountConfig{
		ResetMaxAge: time.Hour,
		HashCost:    bcrypt.MinCost,
	}, zerolog.Nop())
	scores := service.NewScoreService(users, nil, zerolog.Nop())

	e, err := NewRouter(Deps{
		Accounts: accounts,
		Scores:   scores,
		Sessions: session.NewManager(session.NewCookieStore("e2e-secret", session.Options{MaxAge: time.Hour}), "session"),
		Health:   map[string]handler.Pinger{"store": users},
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	b := &browser{t: t, base: srv.URL, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}

	t.Run("ops", func(t *testing.T) {
		resp, _ := b.get("/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp, body := b.get("/health/ready")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"store":{"status":"ok"}`)
		resp, body = b.get("/metrics")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "go_goroutines")
		resp, _ = b.get("/about/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("anonymous sync is rejected before the body is looked at", func(t *testing.T) {
		code, body := b.sync(`garbage`)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, `{"error":"not_logged_in"}`, body)
	})

	t.Run("register and log in", func(t *testing.T) {
		resp, _ := b.post("/user/register", url.Values{
			"username": {"alice"}, "email": {"Alice@Example.com"}, "password": {"correct horse"},
		})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/user/login", resp.Header.Get("Location"))

		_, body := b.get("/user/login")
		assert.Contains(t, body, "Registration successful. Please log in.")

		resp, _ = b.post("/user/login", url.Values{"username": {"alice"}, "password": {"correct horse"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		_, body = b.get("/user/")
		assert.Contains(t, body, "Signed in as <strong>alice</strong>")
		assert.Contains(t, body, "Bongo cat score: 0")
	})

	t.Run("sync", func(t *testing.T) {
		code, body := b.sync(`{"delta": 500}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, `{"total":500}`, body)

		code, body = b.sync(`{"delta": "500"}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, `{"total":1000}`, body)

		code, body = b.sync(`{"delta": 0}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, `{"total":null}`, body)

		for raw, want := range map[string]string{
			`{"delta": -1}`:   `{"error":"negative_delta_forbidden"}`,
			`{"delta": 1001}`: `{"error":"delta_too_large"}`,
			`{"delta": "x"}`:  `{"error":"bad_delta"}`,
			`garbage`:         `{"error":"bad_delta"}`,
		} {
			code, body = b.sync(raw)
			assert.Equal(t, http.StatusBadRequest, code, raw)
			assert.Equal(t, want, body, raw)
		}

		_, page := b.get("/bongo_cat/")
		assert.Contains(t, page, `<span id="score">1000</span>`)
	})

	t.Run("leaderboard", func(t *testing.T) {
		_, err := users.Create(ctx, &domain.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", Score: 1000, CreatedAt: time.Now()})
		require.NoError(t, err)

		_, body := b.get("/bongo_cat/leaderboard?format=json")
		var lb struct {
			Rows []domain.LeaderboardEntry `json:"rows"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &lb))
		assert.Equal(t, []domain.LeaderboardEntry{
			{Username: "alice", Score: 1000},
			{Username: "bob", Score: 1000},
		}, lb.Rows)
	})

	t.Run("password reset", func(t *testing.T) {
		resp, _ := b.post("/user/reset", url.Values{"email": {"alice@example.com"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		msg := mailer.last()
		assert.Equal(t, "alice@example.com", msg.To)
		start := strings.Index(msg.Body, srv.URL+"/user/reset/")
		require.GreaterOrEqual(t, start, 0, msg.Body)
		link := strings.Fields(msg.Body[start:])[0]
		path := strings.TrimPrefix(link, srv.URL)

		resp, _ = b.get(path)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = b.post(path, url.Values{"password": {"new password!"}, "password2": {"new password!"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/user/login", resp.Header.Get("Location"))

		resp, _ = b.get("/user/reset/not-a-token")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/user/reset", resp.Header.Get("Location"))
		_, body := b.get("/user/reset")
		assert.Contains(t, body, "Invalid reset link.")
	})

	t.Run("delete account", func(t *testing.T) {
		b.get("/user/logout")
		resp, body := b.post("/user/login", url.Values{"username": {"alice"}, "password": {"correct horse"}})
		require.Equal(t, http.StatusOK, resp.StatusCode, "old password must stop working")
		assert.Contains(t, body, "Incorrect username or password.")

		resp, _ = b.post("/user/login", url.Values{"username": {"alice"}, "password": {"new password!"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		_, body = b.post("/user/delete", url.Values{"confirm": {"bob"}, "password": {"new password!"}})
		assert.Contains(t, body, "Confirmation text did not match your username.")

		resp, _ = b.post("/user/delete", url.Values{"confirm": {"alice"}, "password": {"new password!"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/user/", resp.Header.Get("Location"))

		_, body = b.get("/user/")
		assert.Contains(t, body, "Your account has been deleted.")
		assert.Contains(t, body, "You are not logged in.")

		_, found, err := users.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
