package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/backend/internal/models"
)

const userColumns = `id, email, password_hash, name, created_at, updated_at`

type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает репозиторий пользователей.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create создает пользователя в базе.
func (r *UserRepository) Create(ctx context.Context, email, passwordHash string, name *string) (models.User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, name)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		email, passwordHash, name,
	)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user, ErrConflict
		}
		return user, err
	}

	return user, nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// UpdateName меняет отображаемое имя; nil очищает его.
func (r *UserRepository) UpdateName(ctx context.Context, id uuid.UUID, name *string) (models.User, error) {
	return r.getOne(ctx,
		`UPDATE users
		 SET name = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, name,
	)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrNotFound
		}
		return user, err
	}

	return user, nil
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	var name *string

	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &name, &user.CreatedAt, &user.UpdatedAt)
	user.Name = name
	return user, err
}
