package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/auth"
	"example.com/budget-tracker/backend/internal/models"
	"example.com/budget-tracker/backend/internal/repository"
)

const maxUsageDays = 30

type AdminHandler struct {
	Repo *repository.AdminRepository
}

// NewAdminHandler создает обработчик админских эндпоинтов.
func NewAdminHandler(repo *repository.AdminRepository) *AdminHandler {
	return &AdminHandler{Repo: repo}
}

type AdminUserResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name,omitempty"`
	Transactions int       `json:"transactions"`
	Goals        int       `json:"goals"`
	CreatedAt    string    `json:"created_at"`
	UpdatedAt    string    `json:"updated_at"`
}

type AdminUsersResponse struct {
	Total int                 `json:"total"`
	Users []AdminUserResponse `json:"users"`
}

type AdminAIRequestResponse struct {
	ID              uuid.UUID       `json:"id"`
	UserID          *uuid.UUID      `json:"user_id,omitempty"`
	RequestType     string          `json:"request_type"`
	Provider        string          `json:"provider"`
	Model           string          `json:"model"`
	Success         bool            `json:"success"`
	Fallback        bool            `json:"fallback"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	CreatedAt       string          `json:"created_at"`
	Prompt          *string         `json:"prompt,omitempty"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
}

type AdminAIRequestsResponse struct {
	Total    int                      `json:"total"`
	Requests []AdminAIRequestResponse `json:"requests"`
}

type AdminUsageDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AdminUsageResponse struct {
	Users           int             `json:"users"`
	Transactions    int             `json:"transactions"`
	Goals           int             `json:"goals"`
	AIRequests      int             `json:"ai_requests"`
	AISuccess       int             `json:"ai_success"`
	AIFail          int             `json:"ai_fail"`
	AIFallback      int             `json:"ai_fallback"`
	AIRequestsByDay []AdminUsageDay `json:"ai_requests_by_day"`
}

// ListUsers возвращает пользователей для админки.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	users, err := h.Repo.ListUsers(ctx, limit, offset)
	if err != nil {
		return serverError(c)
	}

	total, err := h.Repo.CountUsers(ctx)
	if err != nil {
		return serverError(c)
	}

	response := AdminUsersResponse{Total: total, Users: make([]AdminUserResponse, 0, len(users))}
	for _, user := range users {
		response.Users = append(response.Users, AdminUserResponse{
			ID:           user.ID,
			Email:        user.Email,
			Name:         user.Name,
			Transactions: user.Transactions,
			Goals:        user.Goals,
			CreatedAt:    user.CreatedAt.Format(timeLayout),
			UpdatedAt:    user.UpdatedAt.Format(timeLayout),
		})
	}

	return c.JSON(http.StatusOK, response)
}

// ListAIRequests возвращает журнал обращений к модели.
// Фильтры: user_id, success, fallback, request_type, provider.
func (h *AdminHandler) ListAIRequests(c echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter, err := aiRequestFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	includePayloads, err := parseOptionalBool(c, "include_payloads")
	if err != nil {
		return badRequest(c, err.Error())
	}
	withPayloads := includePayloads != nil && *includePayloads

	ctx := c.Request().Context()
	requests, err := h.Repo.ListAIRequests(ctx, filter, limit, offset, withPayloads)
	if err != nil {
		return serverError(c)
	}

	total, err := h.Repo.CountAIRequests(ctx, filter)
	if err != nil {
		return serverError(c)
	}

	response := AdminAIRequestsResponse{Total: total, Requests: make([]AdminAIRequestResponse, 0, len(requests))}
	for _, req := range requests {
		item := AdminAIRequestResponse{
			ID:           req.ID,
			UserID:       req.UserID,
			RequestType:  req.RequestType,
			Provider:     req.Provider,
			Model:        req.Model,
			Success:      req.Success,
			Fallback:     req.Fallback,
			ErrorMessage: req.ErrorMessage,
			CreatedAt:    req.CreatedAt.Format(timeLayout),
		}
		if withPayloads {
			item.Prompt = req.Prompt
			item.RequestPayload = rawJSON(req.RequestPayload)
			item.ResponsePayload = rawJSON(req.ResponsePayload)
		}
		response.Requests = append(response.Requests, item)
	}

	return c.JSON(http.StatusOK, response)
}

// Usage возвращает агрегированную статистику использования.
func (h *AdminHandler) Usage(c echo.Context) error {
	days := 7
	if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "invalid days")
		}
		days = min(parsed, maxUsageDays)
	}

	stats, err := h.Repo.UsageStats(c.Request().Context(), days)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid days")
		}
		return serverError(c)
	}

	byDay := make([]AdminUsageDay, 0, len(stats.AIRequestsByDay))
	for _, day := range stats.AIRequestsByDay {
		byDay = append(byDay, AdminUsageDay{Date: day.Day.Format(models.DateLayout), Count: day.Count})
	}

	return c.JSON(http.StatusOK, AdminUsageResponse{
		Users:           stats.Users,
		Transactions:    stats.Transactions,
		Goals:           stats.Goals,
		AIRequests:      stats.AIRequests,
		AISuccess:       stats.AISuccess,
		AIFail:          stats.AIFail,
		AIFallback:      stats.AIFallback,
		AIRequestsByDay: byDay,
	})
}

// AdminMiddleware пускает только пользователей из списка email-адресов.
func AdminMiddleware(users *repository.UserRepository, emails []string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if trimmed := strings.ToLower(strings.TrimSpace(email)); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := auth.UserIDFromContext(c)
			if !ok {
				return unauthorized(c)
			}
			if len(allowed) == 0 {
				return forbidden(c)
			}

			user, err := users.GetByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return forbidden(c)
				}
				return serverError(c)
			}

			if _, ok := allowed[strings.ToLower(strings.TrimSpace(user.Email))]; !ok {
				return forbidden(c)
			}

			return next(c)
		}
	}
}

func aiRequestFilterFromQuery(c echo.Context) (repository.AIRequestFilter, error) {
	var filter repository.AIRequestFilter

	if raw := strings.TrimSpace(c.QueryParam("user_id")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("invalid user_id")
		}
		filter.UserID = &parsed
	}

	var err error
	if filter.Success, err = parseOptionalBool(c, "success"); err != nil {
		return filter, err
	}
	if filter.Fallback, err = parseOptionalBool(c, "fallback"); err != nil {
		return filter, err
	}

	if raw := strings.TrimSpace(c.QueryParam("request_type")); raw != "" {
		filter.RequestType = &raw
	}
	if raw := strings.ToLower(strings.TrimSpace(c.QueryParam("provider"))); raw != "" {
		filter.Provider = &raw
	}

	return filter, nil
}

func parseOptionalBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}

	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}

	return &parsed, nil
}

func rawJSON(payload []byte) json.RawMessage {
	if len(payload) == 0 {
		return nil
	}
	return json.RawMessage(payload)
}

func parsePagination(c echo.Context, defaultLimit, maxLimit int) (int, int, error) {
	limit := defaultLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = min(parsed, maxLimit)
	}

	offset := 0
	if raw := strings.TrimSpace(c.QueryParam("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = parsed
	}

	return limit, offset, nil
}
