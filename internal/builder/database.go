package builder

import (
	"context"
	"fmt"

	"github.com/futig/onboarding-bot/internal/config"
	pkgRetry "github.com/futig/onboarding-bot/internal/pkg/retry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// setupDatabase creates a new database connection pool
func setupDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	// Configure pool settings from config
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = int32(cfg.DBMinConns)
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.DBHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// The database may still be starting next to us
	if err := ping(ctx, cfg.ConnectRetry, logger, "postgres", pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connection pool established",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
		zap.Duration("max_conn_lifetime", poolConfig.MaxConnLifetime),
		zap.Duration("max_conn_idle_time", poolConfig.MaxConnIdleTime),
		zap.Duration("health_check_period", poolConfig.HealthCheckPeriod),
	)

	return pool, nil
}

// setupRedis connects the conversation state store
func setupRedis(ctx context.Context, cfg config.RedisConfig, retryCfg pkgRetry.RetryConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	redisPing := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := ping(ctx, retryCfg, logger, "redis", redisPing); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("redis connection established",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return client, nil
}

func ping(ctx context.Context, retryCfg pkgRetry.RetryConfig, logger *zap.Logger, name string, fn func(context.Context) error) error {
	attempt := 0
	return retryCfg.Do(ctx, func() error {
		attempt++
		err := fn(ctx)
		if err != nil {
			logger.Warn("storage not reachable yet",
				zap.String("storage", name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	}, nil)
}
