package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/backend/internal/config"
)

const (
	connectAttempts = 5
	pingTimeout     = 5 * time.Second
)

// Open открывает пул подключений к PostgreSQL.
// Неудачные попытки повторяются с удвоением паузы, начиная с секунды.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	settings, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	backoff := time.Second
	for attempt := 1; ; attempt++ {
		pool, err := connect(ctx, settings)
		if err == nil {
			return pool, nil
		}
		if attempt == connectAttempts {
			return nil, fmt.Errorf("connect to database after %d attempts: %w", attempt, err)
		}

		slog.Warn("database connection attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("attempts", connectAttempts),
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	parsed, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	parsed.MaxConns = int32(cfg.MaxOpenConns)
	parsed.MinConns = int32(cfg.MaxIdleConns) // pgxpool has no idle cap, keep that many warm
	parsed.MaxConnIdleTime = cfg.ConnMaxIdleTime
	parsed.MaxConnLifetime = cfg.ConnMaxLifetime
	return parsed, nil
}

// connect создает пул и проверяет его пингом. При ошибке пул закрывается.
func connect(ctx context.Context, settings *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, settings)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
