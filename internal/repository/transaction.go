package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/backend/internal/models"
)

const transactionColumns = `id, user_id, name, category, amount::float8, tone, occurred_on, created_at, updated_at`

type TransactionRepository struct {
	db *pgxpool.Pool
}

type TransactionInput struct {
	Name       string
	Category   string
	Amount     float64
	Tone       *models.Tone
	OccurredOn time.Time
}

type TransactionFilter struct {
	From     *time.Time
	To       *time.Time
	Category *string
	Limit    int
	Offset   int
}

type rowScanner interface {
	Scan(dest ...any) error
}

// NewTransactionRepository создает репозиторий транзакций.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create добавляет транзакцию пользователя.
func (r *TransactionRepository) Create(ctx context.Context, userID uuid.UUID, input TransactionInput) (models.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO transactions (user_id, name, category, amount, tone, occurred_on)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+transactionColumns,
		userID, input.Name, input.Category, input.Amount, toneValue(input.Tone), input.OccurredOn,
	)

	return scanTransaction(row)
}

// Update обновляет транзакцию пользователя.
func (r *TransactionRepository) Update(ctx context.Context, userID, id uuid.UUID, input TransactionInput) (models.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE transactions
		 SET name = $3,
		     category = $4,
		     amount = $5,
		     tone = $6,
		     occurred_on = $7,
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+transactionColumns,
		id, userID, input.Name, input.Category, input.Amount, toneValue(input.Tone), input.OccurredOn,
	)

	transaction, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return transaction, ErrNotFound
	}
	return transaction, err
}

// Delete удаляет транзакцию пользователя.
func (r *TransactionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM transactions
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

// GetByID возвращает транзакцию пользователя по идентификатору.
func (r *TransactionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (models.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	)

	transaction, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return transaction, ErrNotFound
	}
	return transaction, err
}

// List возвращает транзакции пользователя, новые сначала.
func (r *TransactionRepository) List(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]models.Transaction, error) {
	where, args := buildTransactionWhere(userID, filter)

	query := fmt.Sprintf("SELECT %s FROM transactions%s ORDER BY occurred_on DESC, created_at DESC", transactionColumns, where)
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

// Count возвращает количество транзакций пользователя по фильтру.
func (r *TransactionRepository) Count(ctx context.Context, userID uuid.UUID, filter TransactionFilter) (int, error) {
	where, args := buildTransactionWhere(userID, filter)

	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func buildTransactionWhere(userID uuid.UUID, filter TransactionFilter) (string, []any) {
	args := []any{userID}
	clauses := []string{"user_id = $1"}

	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("occurred_on >= $%d", len(args)))
	}

	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("occurred_on <= $%d", len(args)))
	}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var transaction models.Transaction
	var tone *string

	err := row.Scan(
		&transaction.ID,
		&transaction.UserID,
		&transaction.Name,
		&transaction.Category,
		&transaction.Amount,
		&tone,
		&transaction.OccurredOn,
		&transaction.CreatedAt,
		&transaction.UpdatedAt,
	)
	if err != nil {
		return transaction, err
	}

	if tone != nil {
		value := models.Tone(*tone)
		transaction.Tone = &value
	}

	return transaction, nil
}

func toneValue(tone *models.Tone) *string {
	if tone == nil {
		return nil
	}

	value := string(*tone)
	return &value
}
