package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/ai"
	"example.com/budget-tracker/backend/internal/auth"
	"example.com/budget-tracker/backend/internal/insights"
	"example.com/budget-tracker/backend/internal/models"
	"example.com/budget-tracker/backend/internal/notifications"
	"example.com/budget-tracker/backend/internal/repository"
)

const (
	maxInsightsBody = 1 << 20

	malformedRequestMessage = "Invalid request. Expected JSON body with a transactions array."
)

type insightsScheduler interface {
	Mount(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (insights.View, error)
	Refresh(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (insights.Envelope, error)
}

type transactionLister interface {
	List(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]models.Transaction, error)
}

// KeyInfo описывает ключ модели для диагностики.
type KeyInfo struct {
	APIKey     string
	Model      string
	Production bool
}

type InsightsHandler struct {
	Generator    insights.Generator
	Scheduler    insightsScheduler
	Transactions transactionLister
	Notifier     *notifications.Hub
	Key          KeyInfo
	PeriodDays   int
	Logger       *slog.Logger
}

// NewInsightsHandler создает обработчик инсайтов.
func NewInsightsHandler(
	generator insights.Generator,
	scheduler insightsScheduler,
	transactions transactionLister,
	notifier *notifications.Hub,
	key KeyInfo,
	periodDays int,
	logger *slog.Logger,
) *InsightsHandler {
	if periodDays <= 0 {
		periodDays = insights.DefaultPeriodDays
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &InsightsHandler{
		Generator:    generator,
		Scheduler:    scheduler,
		Transactions: transactions,
		Notifier:     notifier,
		Key:          key,
		PeriodDays:   periodDays,
		Logger:       logger,
	}
}

// Generate запускает конвейер для транзакций из тела запроса.
func (h *InsightsHandler) Generate(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return badRequest(c, malformedRequestMessage)
	}

	req, err := insights.ParseRequest(body)
	if err != nil {
		return respondInsightsError(c, err)
	}
	req.UserID = optionalUserID(c)

	envelope, err := h.Generator.Generate(c.Request().Context(), req)
	if err != nil {
		return respondInsightsError(c, err)
	}

	return c.JSON(http.StatusOK, envelope)
}

// Summary отдает закэшированные инсайты и обновляет их, если они устарели.
func (h *InsightsHandler) Summary(c echo.Context) error {
	userID := optionalUserID(c)

	raw, err := h.resolveTransactions(c, userID)
	if err != nil {
		return respondInsightsError(c, err)
	}

	view, err := h.Scheduler.Mount(c.Request().Context(), userID, raw)
	if err != nil {
		return serverError(c)
	}

	if view.Refreshed && view.Payload != nil {
		publishInsightsUpdated(h.Notifier, userID, *view.Payload)
	}

	return c.JSON(http.StatusOK, view)
}

// Regenerate принудительно пересчитывает инсайты.
func (h *InsightsHandler) Regenerate(c echo.Context) error {
	userID := optionalUserID(c)

	raw, err := h.resolveTransactions(c, userID)
	if err != nil {
		return respondInsightsError(c, err)
	}

	envelope, err := h.Scheduler.Refresh(c.Request().Context(), userID, raw)
	if err != nil {
		return respondInsightsError(c, err)
	}

	publishInsightsUpdated(h.Notifier, userID, envelope)
	return c.JSON(http.StatusOK, insights.View{
		Payload:   &envelope,
		CachedAt:  envelope.GeneratedAt.UnixMilli(),
		Refreshed: true,
	})
}

// KeyStatus сообщает, как выглядит настроенный ключ, не раскрывая его.
func (h *InsightsHandler) KeyStatus(c echo.Context) error {
	if h.Key.Production {
		return notFound(c, "not found")
	}

	return c.JSON(http.StatusOK, ai.DescribeKey(h.Key.APIKey, h.Key.Model))
}

// resolveTransactions берет транзакции из тела запроса. Пустое тело у
// авторизованного пользователя означает его сохраненные транзакции за период.
func (h *InsightsHandler) resolveTransactions(c echo.Context, userID uuid.UUID) (json.RawMessage, error) {
	body, err := readBody(c)
	if err != nil {
		return nil, insights.ErrMalformedRequest
	}

	if len(bytes.TrimSpace(body)) > 0 {
		req, err := insights.ParseRequest(body)
		if err != nil {
			return nil, err
		}
		return req.Transactions, nil
	}

	if userID == uuid.Nil || h.Transactions == nil {
		return json.RawMessage("[]"), nil
	}

	from := time.Now().UTC().AddDate(0, 0, -h.PeriodDays)
	stored, err := h.Transactions.List(c.Request().Context(), userID, repository.TransactionFilter{From: &from})
	if err != nil {
		h.Logger.ErrorContext(c.Request().Context(), "failed to load transactions for insights",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return encodeStoredTransactions(stored)
}

type storedTransaction struct {
	Name     string  `json:"name"`
	Category string  `json:"cat"`
	Date     string  `json:"date"`
	Tone     *string `json:"tone,omitempty"`
	Amount   float64 `json:"amount"`
}

func encodeStoredTransactions(items []models.Transaction) (json.RawMessage, error) {
	out := make([]storedTransaction, 0, len(items))
	for _, item := range items {
		var tone *string
		if item.Tone != nil {
			value := string(*item.Tone)
			tone = &value
		}
		out = append(out, storedTransaction{
			Name:     item.Name,
			Category: item.Category,
			Date:     item.OccurredOn.Format(models.DateLayout),
			Tone:     tone,
			Amount:   item.Amount,
		})
	}

	return json.Marshal(out)
}

func readBody(c echo.Context) ([]byte, error) {
	if c.Request().Body == nil {
		return nil, nil
	}

	return io.ReadAll(io.LimitReader(c.Request().Body, maxInsightsBody))
}

func optionalUserID(c echo.Context) uuid.UUID {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return uuid.Nil
	}

	return userID
}

// insightsErrorStatus сопоставляет ошибку конвейера HTTP-статусу и безопасному сообщению.
func insightsErrorStatus(err error) (int, string) {
	var upstream *ai.UpstreamError

	switch {
	case errors.Is(err, insights.ErrMalformedRequest):
		return http.StatusBadRequest, malformedRequestMessage
	case errors.Is(err, ai.ErrMissingCredential):
		return http.StatusBadRequest, "summarization api key is not configured"
	case errors.Is(err, ai.ErrInvalidCredentialShape):
		return http.StatusBadRequest, "summarization api key is malformed"
	case errors.Is(err, ai.ErrInvalidOrRevokedCredential):
		return http.StatusUnauthorized, "summarization api key was rejected"
	case errors.As(err, &upstream):
		status := upstream.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return status, upstream.Error()
	case errors.Is(err, insights.ErrNotEnoughTransactions):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, insights.ErrRefreshInProgress):
		return http.StatusConflict, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "summarization request timed out"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func respondInsightsError(c echo.Context, err error) error {
	status, message := insightsErrorStatus(err)
	return errorStatus(c, status, message)
}
