package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bongocat/webapp/internal/api"
	"github.com/bongocat/webapp/internal/api/handler"
	"github.com/bongocat/webapp/internal/api/session"
	"github.com/bongocat/webapp/internal/core/ports"
	"github.com/bongocat/webapp/internal/core/service"
	"github.com/bongocat/webapp/internal/infrastructure/config"
	redisinfra "github.com/bongocat/webapp/internal/infrastructure/db/redis"
	"github.com/bongocat/webapp/internal/infrastructure/mail"
	"github.com/bongocat/webapp/internal/infrastructure/queue"
	"github.com/bongocat/webapp/internal/infrastructure/token"
	"github.com/bongocat/webapp/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: "webapp"})
	if cfg.PublicBaseURL == "" {
		log.Warn().Msg("PUBLIC_BASE_URL unset, reset links use the request Host header")
	}

	// --- Store ---
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("store connection failed")
		return err
	}
	defer st.close()

	if migrate {
		if _, err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	health := map[string]handler.Pinger{"store": st.users}

	// --- Optional redis ---
	var (
		throttle ports.ResetThrottle
		cache    ports.LeaderboardCache
	)
	if cfg.Redis.Enabled {
		rdb, err := redisinfra.Connect(ctx, redisinfra.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			return err
		}
		defer rdb.Close()

		health["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		cache = redisinfra.NewLeaderboardCache(rdb, cfg.Redis.LeaderboardTTL)
		if cfg.Reset.Throttle > 0 {
			throttle = redisinfra.NewResetThrottle(rdb, cfg.Reset.Throttle)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}

	// --- Mail ---
	// Mail runs on its own context so resets issued while the server drains
	// still go out. Stop flushes the queues once serveUntilDone returns.
	mailCtx, cancelMail := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelMail()
	dispatcher := queue.NewDispatcher(newMailer(cfg, log), queue.Options{Workers: cfg.SMTP.Workers}, log)
	dispatcher.Start(mailCtx)
	defer dispatcher.Stop()

	// --- Core ---
	tokens, err := token.NewResetTokens(cfg.SecretKey, cfg.Reset.Salt)
	if err != nil {
		return err
	}
	accounts := service.NewAccountService(st.users, tokens, dispatcher, throttle, cache, service.AccountConfig{
		ResetMaxAge: cfg.Reset.MaxAge(),
		SiteName:    cfg.ServerName,
	}, log)
	scores := service.NewScoreService(st.users, cache, log)

	cookies := session.NewCookieStore(cfg.SecretKey, session.Options{
		MaxAge: cfg.Session.MaxAge,
		Secure: !cfg.IsDevelopment(),
	})

	e, err := api.NewRouter(api.Deps{
		Accounts:      accounts,
		Scores:        scores,
		Sessions:      session.NewManager(cookies, cfg.Session.Name),
		Health:        health,
		PublicBaseURL: cfg.PublicBaseURL,
		Log:           log,
	})
	if err != nil {
		return err
	}

	return serveUntilDone(ctx, e, ":"+cfg.Port, log)
}

// newMailer picks SMTP when it is configured and the log sink otherwise.
func newMailer(cfg *config.Config, log zerolog.Logger) ports.Mailer {
	smtpCfg := mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	if smtpCfg.Configured() {
		log.Info().Str("host", smtpCfg.Host).Msg("using smtp mailer")
		return mail.NewSMTPMailer(smtpCfg)
	}
	log.Warn().Msg("SMTP not configured, reset mails go to the log")
	return mail.NewLogMailer(log)
}

type server interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}

// serveUntilDone runs srv until ctx is cancelled, then drains in-flight
// requests.
func serveUntilDone(ctx context.Context, srv server, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
