package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/auth"
	"example.com/budget-tracker/backend/internal/models"
	"example.com/budget-tracker/backend/internal/repository"
)

type AuthHandler struct {
	Users        *repository.UserRepository
	Tokens       *repository.RefreshTokenRepository
	TokenManager *auth.TokenManager
}

// NewAuthHandler создает обработчик авторизации.
func NewAuthHandler(users *repository.UserRepository, tokens *repository.RefreshTokenRepository, manager *auth.TokenManager) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		Tokens:       tokens,
		TokenManager: manager,
	}
}

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     *string `json:"name" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UpdateMeRequest struct {
	Name *string `json:"name" validate:"omitempty,max=100"`
}

type LogoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

type AuthUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  *string   `json:"name,omitempty"`
}

type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

type UserResponse struct {
	User AuthUser `json:"user"`
}

var (
	errInvalidPayload   = errors.New("invalid payload")
	errValidationFailed = errors.New("validation failed")
	errRefreshRejected  = errors.New("refresh token rejected")
)

// Register регистрирует пользователя и выдает токены.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindRequest(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	passwordHash, err := auth.HashPassword(strings.TrimSpace(req.Password))
	switch {
	case errors.Is(err, auth.ErrPasswordTooLong):
		return badRequest(c, err.Error())
	case err != nil:
		return serverError(c)
	}

	ctx := c.Request().Context()
	user, err := h.Users.Create(ctx, normalizeEmail(req.Email), passwordHash, normalizeName(req.Name))
	switch {
	case errors.Is(err, repository.ErrConflict):
		return conflict(c, "user already exists")
	case err != nil:
		return serverError(c)
	}

	session, err := h.startSession(ctx, user, nil)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusCreated, session)
}

// Login выполняет вход и выдает токены.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindRequest(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	user, err := h.Users.GetByEmail(ctx, normalizeEmail(req.Email))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return unauthorized(c)
	case err != nil:
		return serverError(c)
	}

	if auth.ComparePassword(user.PasswordHash, strings.TrimSpace(req.Password)) != nil {
		return unauthorized(c)
	}

	session, err := h.startSession(ctx, user, nil)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusOK, session)
}

// Refresh меняет действующий refresh-токен на новую пару. Старый токен отзывается.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindRequest(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	stored, err := h.verifyRefreshToken(ctx, req.RefreshToken)
	switch {
	case errors.Is(err, errRefreshRejected):
		return unauthorized(c)
	case err != nil:
		return serverError(c)
	}

	user, err := h.Users.GetByID(ctx, stored.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return unauthorized(c)
	case err != nil:
		return serverError(c)
	}

	session, err := h.startSession(ctx, user, &stored.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return unauthorized(c)
	case err != nil:
		return serverError(c)
	}
	return c.JSON(http.StatusOK, session)
}

// Logout отзывает refresh-токен. Неизвестный токен не считается ошибкой.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := bindRequest(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	claims, err := h.TokenManager.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return unauthorized(c)
	}
	tokenID, err := claims.TokenID()
	if err != nil {
		return unauthorized(c)
	}

	err = h.Tokens.Revoke(c.Request().Context(), tokenID, nil)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return serverError(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me возвращает данные текущего пользователя.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.Users.GetByID(c.Request().Context(), userID)
	return h.respondUser(c, user, err)
}

// UpdateMe меняет имя текущего пользователя. Пустое имя сбрасывает его.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req UpdateMeRequest
	if err := bindRequest(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.Users.UpdateName(c.Request().Context(), userID, normalizeName(req.Name))
	return h.respondUser(c, user, err)
}

// LogoutAll отзывает все refresh-токены пользователя.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	revoked, err := h.Tokens.RevokeAllForUser(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusOK, LogoutAllResponse{Revoked: revoked})
}

func (h *AuthHandler) respondUser(c echo.Context, user models.User, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "user not found")
	case err != nil:
		return serverError(c)
	}
	return c.JSON(http.StatusOK, UserResponse{User: toAuthUser(user)})
}

// verifyRefreshToken проверяет подпись, срок и хэш refresh-токена.
// Любое несоответствие возвращает errRefreshRejected.
func (h *AuthHandler) verifyRefreshToken(ctx context.Context, raw string) (models.RefreshToken, error) {
	claims, err := h.TokenManager.ParseRefreshToken(raw)
	if err != nil {
		return models.RefreshToken{}, errRefreshRejected
	}
	tokenID, err := claims.TokenID()
	if err != nil {
		return models.RefreshToken{}, errRefreshRejected
	}
	userID, err := claims.UserID()
	if err != nil {
		return models.RefreshToken{}, errRefreshRejected
	}

	stored, err := h.Tokens.GetByID(ctx, tokenID)
	if errors.Is(err, repository.ErrNotFound) {
		return stored, errRefreshRejected
	}
	if err != nil {
		return stored, fmt.Errorf("load refresh token: %w", err)
	}

	usable := stored.RevokedAt == nil &&
		time.Now().Before(stored.ExpiresAt) &&
		stored.UserID == userID &&
		auth.CompareTokenHash(stored.TokenHash, raw)
	if !usable {
		return stored, errRefreshRejected
	}
	return stored, nil
}

// startSession выпускает пару токенов и сохраняет refresh-токен.
// Если передан replaces, старый токен отзывается в той же транзакции.
func (h *AuthHandler) startSession(ctx context.Context, user models.User, replaces *uuid.UUID) (AuthResponse, error) {
	tokenID := uuid.New()
	pair, err := h.TokenManager.NewTokenPair(user.ID, tokenID)
	if err != nil {
		return AuthResponse{}, err
	}

	record := models.RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if replaces != nil {
		err = h.Tokens.Rotate(ctx, *replaces, record)
	} else {
		err = h.Tokens.Create(ctx, record)
	}
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toAuthUser(user),
	}, nil
}

// bindRequest разбирает тело запроса и прогоняет валидатор.
func bindRequest(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errInvalidPayload
	}
	if err := c.Validate(req); err != nil {
		return errValidationFailed
	}
	return nil
}

func toAuthUser(user models.User) AuthUser {
	return AuthUser{ID: user.ID, Email: user.Email, Name: user.Name}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	if trimmed := strings.TrimSpace(*name); trimmed != "" {
		return &trimmed
	}
	return nil
}
