package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/bongocat/webapp/internal/core/ports"
	"github.com/bongocat/webapp/internal/infrastructure/config"
	"github.com/bongocat/webapp/internal/infrastructure/db/migrations"
	mongodb "github.com/bongocat/webapp/internal/infrastructure/db/mongo"
	"github.com/bongocat/webapp/internal/infrastructure/db/postgres"
	"github.com/bongocat/webapp/internal/infrastructure/db/sqlite"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

var errUnknownDriver = errors.New("unknown store driver")

// store is the opened credential store plus what migrate needs to reach it.
type store struct {
	driver string
	users  ports.UserRepository
	// sqlDB is set for the relational drivers.
	sqlDB *sql.DB
	// mongoUsers is set for the mongo driver.
	mongoUsers *mongodb.UserRepository
	close      func()
}

// Migrate brings the schema up to date.
func (s *store) Migrate(ctx context.Context) ([]int64, error) {
	if s.mongoUsers != nil {
		return nil, s.mongoUsers.EnsureIndexes(ctx)
	}
	return migrations.Up(ctx, s.sqlDB, s.driver)
}

// openStore connects the configured driver, retrying with exponential
// backoff so the app can start alongside its database.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	var s *store
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(connectBackoff))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		opened, err := connect(ctx, cfg)
		if errors.Is(err, errUnknownDriver) {
			return err
		}
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Str("driver", cfg.Store.Driver).Msg("store not reachable")
			return retry.RetryableError(err)
		}
		s = opened
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", s.driver).Msg("store connected")
	return s, nil
}

func connect(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongodb.NewUserRepository(db)
		return &store{
			driver:     config.DriverMongo,
			users:      users,
			mongoUsers: users,
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL})
		if err != nil {
			return nil, err
		}
		sqlDB := postgres.OpenDB(pool)
		return &store{
			driver: migrations.Postgres,
			users:  postgres.NewUserRepository(pool),
			sqlDB:  sqlDB,
			close: func() {
				_ = sqlDB.Close()
				pool.Close()
			},
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLite.Path})
		if err != nil {
			return nil, err
		}
		return &store{
			driver: migrations.SQLite,
			users:  sqlite.NewUserRepository(db),
			sqlDB:  db,
			close:  func() { _ = db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownDriver, cfg.Store.Driver)
}
