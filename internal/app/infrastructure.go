package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sgml/firebase-steam-login/internal/config"
	"github.com/sgml/firebase-steam-login/migrations"
	"github.com/sgml/firebase-steam-login/pkg/database"
	"github.com/sgml/firebase-steam-login/pkg/observability"
	"go.uber.org/zap"
)

const serviceName = "firebase-steam-login"

type Infrastructure interface {
	Postgres() *database.Postgres
	Redis() *database.Redis
	Logger() *zap.Logger
	Telemetry() *observability.Telemetry

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres  *database.Postgres
	redis     *database.Redis
	logger    *zap.Logger
	telemetry *observability.Telemetry
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	postgres, err := database.NewPostgres(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.postgres = postgres

	if err := postgres.Migrate(migrations.FS, "."); err != nil {
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	redis, err := database.NewRedis(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	telemetry, err := observability.InitTelemetry(serviceName)
	if err != nil {
		_ = i.postgres.Close()
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.telemetry = telemetry

	return i, nil
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) Telemetry() *observability.Telemetry {
	return i.telemetry
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 4)

	go func() { errs <- i.postgres.Close() }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- i.logger.Sync() }()
	go func() { errs <- i.telemetry.Shutdown(ctx) }()

	return errors.Join(<-errs, <-errs, <-errs, <-errs)
}
