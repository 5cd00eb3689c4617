package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Income is an explicit income tone, or a positive amount when no tone is set.
const isIncomeSQL = `COALESCE(tone = 'income', amount > 0)`

type StatsRepository struct {
	db *pgxpool.Pool
}

type OverviewStats struct {
	TotalTransactions int
	TotalGoals        int
	CompletedGoals    int
	SavedTowardGoals  float64
}

type MonthlyComparison struct {
	Month    time.Time
	Income   float64
	Expenses float64
}

// NewStatsRepository создает репозиторий статистики.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// Overview возвращает счетчики по транзакциям и целям пользователя.
func (r *StatsRepository) Overview(ctx context.Context, userID uuid.UUID) (OverviewStats, error) {
	var stats OverviewStats

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalTransactions)
	if err != nil {
		return stats, err
	}

	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE current_amount >= target_amount),
		        COALESCE(SUM(current_amount), 0)::float8
		 FROM goals
		 WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalGoals, &stats.CompletedGoals, &stats.SavedTowardGoals)
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// MonthlyComparison возвращает доходы и расходы по месяцам, новые сначала.
func (r *StatsRepository) MonthlyComparison(ctx context.Context, userID uuid.UUID, months int) ([]MonthlyComparison, error) {
	if months <= 0 {
		return nil, ErrInvalid
	}

	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('month', occurred_on)::date AS month,
		        COALESCE(SUM(ABS(amount)) FILTER (WHERE `+isIncomeSQL+`), 0)::float8 AS income,
		        COALESCE(SUM(ABS(amount)) FILTER (WHERE NOT `+isIncomeSQL+`), 0)::float8 AS expenses
		 FROM transactions
		 WHERE user_id = $1
		 GROUP BY month
		 ORDER BY month DESC
		 LIMIT $2`,
		userID, months,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]MonthlyComparison, 0)
	for rows.Next() {
		var row MonthlyComparison
		if err := rows.Scan(&row.Month, &row.Income, &row.Expenses); err != nil {
			return nil, err
		}
		items = append(items, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
