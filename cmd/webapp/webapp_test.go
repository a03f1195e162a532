package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bongocat/webapp/internal/core/domain"
	"github.com/bongocat/webapp/internal/infrastructure/config"
	"github.com/bongocat/webapp/internal/infrastructure/mail"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	serve, _, _ := root.Find([]string{"serve"})
	assert.NotNil(t, serve.Flags().Lookup("migrate"))
}

func TestOpenStore_SQLiteMigrateAndUse(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Store:  config.StoreConfig{Driver: config.DriverSQLite},
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "data", "bongo.db")},
	}

	s, err := openStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer s.close()

	applied, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, applied)

	applied, err = s.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied, "second run has nothing to apply")

	u, err := s.users.Create(ctx, &domain.User{Username: "alice", Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	require.NoError(t, err)
	total, err := s.users.IncrementScore(ctx, u.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestOpenStore_UnknownDriverIsNotRetried(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "nope"}}

	start := time.Now()
	_, err := openStore(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, errUnknownDriver)
	assert.Less(t, time.Since(start), connectBackoff)
}

func TestNewMailer(t *testing.T) {
	cfg := &config.Config{}
	_, isLog := newMailer(cfg, zerolog.Nop()).(*mail.LogMailer)
	assert.True(t, isLog, "no smtp settings means the log mailer")

	cfg.SMTP = config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "noreply@example.com"}
	_, isSMTP := newMailer(cfg, zerolog.Nop()).(*mail.SMTPMailer)
	assert.True(t, isSMTP)
}

type fakeServer struct {
	started  chan struct{}
	stop     chan struct{}
	shutdown bool
	startErr error
}

func (s *fakeServer) Start(string) error {
	close(s.started)
	if s.startErr != nil {
		return s.startErr
	}
	<-s.stop
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(context.Context) error {
	s.shutdown = true
	close(s.stop)
	return nil
}

func TestServeUntilDone_GracefulShutdown(t *testing.T) {
	srv := &fakeServer{started: make(chan struct{}), stop: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, srv, ":0", zerolog.Nop()) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, srv.shutdown)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeUntilDone_StartFailure(t *testing.T) {
	boom := errors.New("address in use")
	srv := &fakeServer{started: make(chan struct{}), stop: make(chan struct{}), startErr: boom}

	err := serveUntilDone(context.Background(), srv, ":0", zerolog.Nop())
	assert.ErrorIs(t, err, boom)
	assert.False(t, srv.shutdown)
}
