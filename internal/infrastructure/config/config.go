package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port          string `env:"PORT,            default=8000"`
	Env           string `env:"ENV,             default=development"`
	LogLevel      string `env:"LOG_LEVEL,       default=info"`
	SecretKey     string `env:"SECRET_KEY"`
	ServerName    string `env:"SERVER_NAME,     default=Your Friendly Website"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	Reset    ResetConfig
	Session  SessionConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
}

type ResetConfig struct {
	Salt string `env:"RESET_TOKEN_SALT,    default=pw-reset"`
	// MaxAgeSeconds is how long a reset link stays valid.
	MaxAgeSeconds int           `env:"RESET_TOKEN_MAX_AGE, default=3600"`
	Throttle      time.Duration `env:"RESET_THROTTLE,      default=1m"`
}

func (r ResetConfig) MaxAge() time.Duration {
	return time.Duration(r.MaxAgeSeconds) * time.Second
}

type SessionConfig struct {
	Name   string        `env:"SESSION_NAME,    default=session"`
	MaxAge time.Duration `env:"SESSION_MAX_AGE, default=168h"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=bongocat"`
}

type PostgresConfig struct {
	URL string `env:"DATABASE_URL, default=postgres://localhost:5432/bongocat?sslmode=disable"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=var/bongocat.db"`
}

type RedisConfig struct {
	Enabled        bool          `env:"REDIS_ENABLED,         default=false"`
	Addr           string        `env:"REDIS_ADDR,            default=localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,              default=0"`
	LeaderboardTTL time.Duration `env:"LEADERBOARD_CACHE_TTL, default=5s"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,    default=587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	From     string `env:"SMTP_FROM"`
	Workers  int    `env:"MAIL_WORKERS, default=2"`
}

// IsDevelopment enables pretty logs and cookies without the Secure flag.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l. Tests pass envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	switch c.Store.Driver {
	case DriverMongo, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER %q is not one of mongo, postgres, sqlite", c.Store.Driver)
	}
	if c.Reset.MaxAgeSeconds <= 0 {
		return errors.New("RESET_TOKEN_MAX_AGE must be positive")
	}
	// Reset links fall back to the request Host header without it, which a
	// client controls.
	if c.PublicBaseURL == "" && !c.IsDevelopment() {
		return errors.New("PUBLIC_BASE_URL is required outside development")
	}
	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("PUBLIC_BASE_URL %q is not an absolute http(s) URL", c.PublicBaseURL)
		}
	}
	return nil
}
