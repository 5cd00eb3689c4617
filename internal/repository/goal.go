package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/backend/internal/models"
)

const goalColumns = `id, user_id, name, target_amount::float8, current_amount::float8, deadline, color, created_at, updated_at`

type GoalRepository struct {
	db *pgxpool.Pool
}

type GoalInput struct {
	Name          string
	TargetAmount  float64
	CurrentAmount float64
	Deadline      *time.Time
	Color         *string
}

// NewGoalRepository создает репозиторий финансовых целей.
func NewGoalRepository(db *pgxpool.Pool) *GoalRepository {
	return &GoalRepository{db: db}
}

// Create создает цель пользователя.
func (r *GoalRepository) Create(ctx context.Context, userID uuid.UUID, input GoalInput) (models.Goal, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO goals (user_id, name, target_amount, current_amount, deadline, color)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, '#6366f1'))
		 RETURNING `+goalColumns,
		userID, input.Name, input.TargetAmount, input.CurrentAmount, input.Deadline, input.Color,
	)

	goal, err := scanGoal(row)
	return goal, mapCheckViolation(err)
}

// Update обновляет цель пользователя.
func (r *GoalRepository) Update(ctx context.Context, userID, id uuid.UUID, input GoalInput) (models.Goal, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE goals
		 SET name = $3,
		     target_amount = $4,
		     current_amount = $5,
		     deadline = $6,
		     color = COALESCE($7, color),
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+goalColumns,
		id, userID, input.Name, input.TargetAmount, input.CurrentAmount, input.Deadline, input.Color,
	)

	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return goal, ErrNotFound
	}
	return goal, mapCheckViolation(err)
}

// Contribute увеличивает накопленную сумму цели.
func (r *GoalRepository) Contribute(ctx context.Context, userID, id uuid.UUID, amount float64) (models.Goal, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE goals
		 SET current_amount = current_amount + $3,
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+goalColumns,
		id, userID, amount,
	)

	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return goal, ErrNotFound
	}
	return goal, mapCheckViolation(err)
}

// Delete удаляет цель пользователя.
func (r *GoalRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM goals
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByUser возвращает цели пользователя по ближайшему сроку.
func (r *GoalRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Goal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+goalColumns+`
		 FROM goals
		 WHERE user_id = $1
		 ORDER BY deadline NULLS LAST, created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]models.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return goals, nil
}

func scanGoal(row rowScanner) (models.Goal, error) {
	var goal models.Goal
	var deadline *time.Time

	err := row.Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Name,
		&goal.TargetAmount,
		&goal.CurrentAmount,
		&deadline,
		&goal.Color,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)
	goal.Deadline = deadline
	return goal, err
}

func mapCheckViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" {
		return ErrInvalid
	}
	return err
}
