package localstore

import (
	"context"
	"errors"
	"log/slog"

	"example.com/budget-tracker/backend/internal/insights"
)

// Fallback writes through to both stores and reads the local copy first.
// The local copy receives every write, including ones the primary missed,
// so it is never older than the primary. The primary serves keys the local
// copy does not have, and such hits are copied back locally.
type Fallback struct {
	primary insights.KVStore
	local   insights.KVStore
	logger  *slog.Logger
}

// NewFallback объединяет основное хранилище (Postgres) с локальной копией.
func NewFallback(primary, local insights.KVStore, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}

	return &Fallback{primary: primary, local: local, logger: logger}
}

func (f *Fallback) Get(ctx context.Context, key string) (string, error) {
	value, err := f.local.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, insights.ErrKeyNotFound) {
		f.warn(ctx, "get local", key, err)
	}

	value, primaryErr := f.primary.Get(ctx, key)
	if primaryErr != nil {
		if !errors.Is(primaryErr, insights.ErrKeyNotFound) {
			f.warn(ctx, "get", key, primaryErr)
		}
		if errors.Is(err, insights.ErrKeyNotFound) {
			return "", primaryErr
		}
		return "", errors.Join(err, primaryErr)
	}

	if errors.Is(err, insights.ErrKeyNotFound) {
		if setErr := f.local.Set(ctx, key, value); setErr != nil {
			f.warn(ctx, "backfill local", key, setErr)
		}
	}
	return value, nil
}

// Set пишет в оба хранилища. Если локальная запись не удалась, старая
// локальная копия удаляется, чтобы чтение ушло в основное хранилище.
func (f *Fallback) Set(ctx context.Context, key, value string) error {
	primaryErr := f.primary.Set(ctx, key, value)
	if primaryErr != nil {
		f.warn(ctx, "set", key, primaryErr)
	}

	if err := f.local.Set(ctx, key, value); err != nil {
		if primaryErr != nil {
			return errors.Join(primaryErr, err)
		}
		f.warn(ctx, "set local", key, err)
		if delErr := f.local.Delete(ctx, key); delErr != nil {
			f.warn(ctx, "drop stale local", key, delErr)
		}
	}

	return nil
}

func (f *Fallback) Delete(ctx context.Context, key string) error {
	primaryErr := f.primary.Delete(ctx, key)
	if primaryErr != nil {
		f.warn(ctx, "delete", key, primaryErr)
	}

	if err := f.local.Delete(ctx, key); err != nil {
		if primaryErr != nil {
			return errors.Join(primaryErr, err)
		}
		f.warn(ctx, "delete local", key, err)
	}

	return nil
}

func (f *Fallback) warn(ctx context.Context, op, key string, err error) {
	f.logger.WarnContext(ctx, "insight cache store degraded",
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}
