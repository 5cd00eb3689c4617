package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/auth"
	"example.com/budget-tracker/backend/internal/models"
	"example.com/budget-tracker/backend/internal/money"
	"example.com/budget-tracker/backend/internal/notifications"
	"example.com/budget-tracker/backend/internal/repository"
)

const defaultTransactionCategory = "Uncategorized"

type TransactionHandler struct {
	Transactions *repository.TransactionRepository
	Notifier     *notifications.Hub
}

// NewTransactionHandler создает обработчик транзакций.
func NewTransactionHandler(transactions *repository.TransactionRepository, notifier *notifications.Hub) *TransactionHandler {
	return &TransactionHandler{Transactions: transactions, Notifier: notifier}
}

// TransactionRequest принимает сумму числом или строкой вида "-$1,234.50".
type TransactionRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Category string  `json:"category" validate:"max=100"`
	Amount   any     `json:"amount"`
	Tone     *string `json:"tone" validate:"omitempty,tone"`
	Date     string  `json:"date" validate:"required"`
}

type TransactionResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Tone      *string   `json:"tone,omitempty"`
	Date      string    `json:"date"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

type TransactionListResponse struct {
	Total        int                   `json:"total"`
	Transactions []TransactionResponse `json:"transactions"`
}

// List возвращает транзакции пользователя с фильтрами from, to, category.
func (h *TransactionHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	filter, err := transactionFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	limit, offset, err := parsePagination(c, 100, 500)
	if err != nil {
		return badRequest(c, err.Error())
	}
	filter.Limit = limit
	filter.Offset = offset

	items, err := h.Transactions.List(c.Request().Context(), userID, filter)
	if err != nil {
		return serverError(c)
	}

	total, err := h.Transactions.Count(c.Request().Context(), userID, filter)
	if err != nil {
		return serverError(c)
	}

	response := make([]TransactionResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toTransactionResponse(item))
	}

	return c.JSON(http.StatusOK, TransactionListResponse{Total: total, Transactions: response})
}

// Create добавляет транзакцию.
func (h *TransactionHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	input, err := bindTransactionInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	transaction, err := h.Transactions.Create(c.Request().Context(), userID, input)
	if err != nil {
		return serverError(c)
	}

	publishTransactionsChanged(h.Notifier, userID, "created", transaction.ID)
	return c.JSON(http.StatusCreated, toTransactionResponse(transaction))
}

// Get возвращает транзакцию по идентификатору.
func (h *TransactionHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return badRequest(c, "invalid transaction id")
	}

	transaction, err := h.Transactions.GetByID(c.Request().Context(), userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "transaction not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, toTransactionResponse(transaction))
}

// Update заменяет поля транзакции.
func (h *TransactionHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return badRequest(c, "invalid transaction id")
	}

	input, err := bindTransactionInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	transaction, err := h.Transactions.Update(c.Request().Context(), userID, id, input)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "transaction not found")
		}
		return serverError(c)
	}

	publishTransactionsChanged(h.Notifier, userID, "updated", transaction.ID)
	return c.JSON(http.StatusOK, toTransactionResponse(transaction))
}

// Delete удаляет транзакцию.
func (h *TransactionHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return badRequest(c, "invalid transaction id")
	}

	if err := h.Transactions.Delete(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "transaction not found")
		}
		return serverError(c)
	}

	publishTransactionsChanged(h.Notifier, userID, "deleted", id)
	return c.NoContent(http.StatusNoContent)
}

func bindTransactionInput(c echo.Context) (repository.TransactionInput, error) {
	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return repository.TransactionInput{}, errors.New("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return repository.TransactionInput{}, errors.New("validation failed")
	}

	return transactionInputFromRequest(req)
}

func transactionInputFromRequest(req TransactionRequest) (repository.TransactionInput, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return repository.TransactionInput{}, errors.New("name is required")
	}

	amount, ok := money.Parse(req.Amount)
	if !ok {
		return repository.TransactionInput{}, errors.New("invalid amount")
	}

	occurredOn, err := time.Parse(models.DateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		return repository.TransactionInput{}, errors.New("invalid date format")
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = defaultTransactionCategory
	}

	var tone *models.Tone
	if req.Tone != nil {
		value := models.Tone(strings.TrimSpace(*req.Tone))
		tone = &value
	}

	return repository.TransactionInput{
		Name:       name,
		Category:   category,
		Amount:     money.Round2(amount),
		Tone:       tone,
		OccurredOn: occurredOn,
	}, nil
}

func transactionFilterFromQuery(c echo.Context) (repository.TransactionFilter, error) {
	from, to, err := parsePeriod(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return repository.TransactionFilter{}, err
	}

	filter := repository.TransactionFilter{From: from, To: to}
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		filter.Category = &category
	}

	return filter, nil
}

func toTransactionResponse(transaction models.Transaction) TransactionResponse {
	var tone *string
	if transaction.Tone != nil {
		value := string(*transaction.Tone)
		tone = &value
	}

	return TransactionResponse{
		ID:        transaction.ID,
		Name:      transaction.Name,
		Category:  transaction.Category,
		Amount:    transaction.Amount,
		Tone:      tone,
		Date:      transaction.OccurredOn.Format(models.DateLayout),
		CreatedAt: transaction.CreatedAt.Format(timeLayout),
		UpdatedAt: transaction.UpdatedAt.Format(timeLayout),
	}
}
