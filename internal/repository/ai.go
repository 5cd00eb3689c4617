package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/backend/internal/insights"
)

const RequestTypeInsights = "insights"

type AIRepository struct {
	db *pgxpool.Pool
}

// NewAIRepository создает репозиторий для AI-запросов.
func NewAIRepository(db *pgxpool.Pool) *AIRepository {
	return &AIRepository{db: db}
}

// RecordAttempt сохраняет попытку генерации инсайтов в ai_requests.
// Анонимные попытки пишутся без user_id.
func (r *AIRepository) RecordAttempt(ctx context.Context, attempt insights.Attempt) error {
	var userID *uuid.UUID
	if attempt.UserID != uuid.Nil {
		userID = &attempt.UserID
	}

	var errorMessage *string
	if attempt.ErrorMessage != "" {
		errorMessage = &attempt.ErrorMessage
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO ai_requests
		 (user_id, request_type, provider, model, prompt, request_payload, response_payload, success, fallback, error_message)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::jsonb, NULLIF($7, '')::jsonb, $8, $9, $10)`,
		userID,
		RequestTypeInsights,
		attempt.Provider,
		attempt.Model,
		attempt.Prompt,
		string(attempt.RequestPayload),
		string(attempt.ResponsePayload),
		attempt.Success,
		attempt.Fallback,
		errorMessage,
	)
	return err
}
