package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	aiRequestColumns        = "id, user_id, request_type, provider, model, success, fallback, error_message, created_at"
	aiRequestPayloadColumns = "id, user_id, request_type, provider, model, success, fallback, error_message, created_at, prompt, request_payload, response_payload"
)

type AdminRepository struct {
	db *pgxpool.Pool
}

type AdminUser struct {
	ID           uuid.UUID
	Email        string
	Name         *string
	Transactions int
	Goals        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AIRequestFilter struct {
	UserID      *uuid.UUID
	Success     *bool
	Fallback    *bool
	RequestType *string
	Provider    *string
}

type AIRequestRecord struct {
	ID              uuid.UUID
	UserID          *uuid.UUID
	RequestType     string
	Provider        string
	Model           string
	Prompt          *string
	RequestPayload  []byte
	ResponsePayload []byte
	Success         bool
	Fallback        bool
	ErrorMessage    *string
	CreatedAt       time.Time
}

type DailyCount struct {
	Day   time.Time
	Count int
}

type UsageStats struct {
	Users           int
	Transactions    int
	Goals           int
	AIRequests      int
	AIFallback      int
	AISuccess       int
	AIFail          int
	AIRequestsByDay []DailyCount
}

// NewAdminRepository создает репозиторий для админских запросов.
func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

// ListUsers возвращает пользователей с количеством их транзакций и целей.
func (r *AdminRepository) ListUsers(ctx context.Context, limit, offset int) ([]AdminUser, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.email, u.name,
		        (SELECT COUNT(*) FROM transactions t WHERE t.user_id = u.id),
		        (SELECT COUNT(*) FROM goals g WHERE g.user_id = u.id),
		        u.created_at, u.updated_at
		 FROM users u
		 ORDER BY u.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]AdminUser, 0)
	for rows.Next() {
		var user AdminUser
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Transactions, &user.Goals, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (r *AdminRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// ListAIRequests возвращает журнал обращений к модели. Промпт и payload
// читаются только при includePayloads.
func (r *AdminRepository) ListAIRequests(ctx context.Context, filter AIRequestFilter, limit, offset int, includePayloads bool) ([]AIRequestRecord, error) {
	where, args := buildAIRequestWhere(filter)

	columns := aiRequestColumns
	if includePayloads {
		columns = aiRequestPayloadColumns
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf("SELECT %s FROM ai_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		columns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]AIRequestRecord, 0)
	for rows.Next() {
		var record AIRequestRecord
		dest := []any{
			&record.ID,
			&record.UserID,
			&record.RequestType,
			&record.Provider,
			&record.Model,
			&record.Success,
			&record.Fallback,
			&record.ErrorMessage,
			&record.CreatedAt,
		}
		if includePayloads {
			dest = append(dest, &record.Prompt, &record.RequestPayload, &record.ResponsePayload)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		requests = append(requests, record)
	}

	return requests, rows.Err()
}

func (r *AdminRepository) CountAIRequests(ctx context.Context, filter AIRequestFilter) (int, error) {
	where, args := buildAIRequestWhere(filter)

	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM ai_requests"+where, args...).Scan(&count)
	return count, err
}

// UsageStats возвращает общие счетчики и число обращений к модели по дням за days дней.
func (r *AdminRepository) UsageStats(ctx context.Context, days int) (UsageStats, error) {
	stats := UsageStats{}
	if days <= 0 {
		return stats, ErrInvalid
	}

	err := r.db.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM users),
		        (SELECT COUNT(*) FROM transactions),
		        (SELECT COUNT(*) FROM goals),
		        COUNT(*),
		        COUNT(*) FILTER (WHERE success),
		        COUNT(*) FILTER (WHERE NOT success),
		        COUNT(*) FILTER (WHERE fallback)
		 FROM ai_requests`,
	).Scan(&stats.Users, &stats.Transactions, &stats.Goals,
		&stats.AIRequests, &stats.AISuccess, &stats.AIFail, &stats.AIFallback)
	if err != nil {
		return stats, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('day', created_at)::date AS day, COUNT(*)
		 FROM ai_requests
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day DESC`,
		time.Now().UTC().AddDate(0, 0, -days+1),
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.AIRequestsByDay = make([]DailyCount, 0, days)
	for rows.Next() {
		var row DailyCount
		if err := rows.Scan(&row.Day, &row.Count); err != nil {
			return stats, err
		}
		stats.AIRequestsByDay = append(stats.AIRequestsByDay, row)
	}

	return stats, rows.Err()
}

func buildAIRequestWhere(filter AIRequestFilter) (string, []any) {
	var clauses []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.UserID != nil {
		add("user_id", *filter.UserID)
	}
	if filter.Success != nil {
		add("success", *filter.Success)
	}
	if filter.Fallback != nil {
		add("fallback", *filter.Fallback)
	}
	if filter.RequestType != nil {
		add("request_type", *filter.RequestType)
	}
	if filter.Provider != nil {
		add("provider", *filter.Provider)
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
