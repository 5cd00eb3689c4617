package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/backend/internal/insights"
)

// InsightCacheRepository is the Postgres key/value table behind the insight cache.
type InsightCacheRepository struct {
	db *pgxpool.Pool
}

func NewInsightCacheRepository(db *pgxpool.Pool) *InsightCacheRepository {
	return &InsightCacheRepository{db: db}
}

func (r *InsightCacheRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM insight_cache WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", insights.ErrKeyNotFound
		}
		return "", err
	}

	return value, nil
}

func (r *InsightCacheRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO insight_cache (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	return err
}

func (r *InsightCacheRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM insight_cache WHERE key = $1`, key)
	return err
}
