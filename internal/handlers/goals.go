package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/auth"
	"example.com/budget-tracker/backend/internal/models"
	"example.com/budget-tracker/backend/internal/money"
	"example.com/budget-tracker/backend/internal/notifications"
	"example.com/budget-tracker/backend/internal/repository"
)

type GoalHandler struct {
	Goals    *repository.GoalRepository
	Notifier *notifications.Hub
}

// NewGoalHandler создает обработчик финансовых целей.
func NewGoalHandler(goals *repository.GoalRepository, notifier *notifications.Hub) *GoalHandler {
	return &GoalHandler{Goals: goals, Notifier: notifier}
}

type GoalRequest struct {
	Name          string  `json:"name" validate:"required,max=100"`
	TargetAmount  any     `json:"target_amount"`
	CurrentAmount any     `json:"current_amount"`
	Deadline      *string `json:"deadline"`
	Color         *string `json:"color"`
}

type ContributeRequest struct {
	Amount any `json:"amount"`
}

type GoalResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	TargetAmount  float64   `json:"target_amount"`
	CurrentAmount float64   `json:"current_amount"`
	Progress      float64   `json:"progress"`
	Completed     bool      `json:"completed"`
	Deadline      *string   `json:"deadline,omitempty"`
	Color         string    `json:"color"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
}

type GoalListResponse struct {
	Goals []GoalResponse `json:"goals"`
}

// List возвращает цели пользователя.
func (h *GoalHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	goals, err := h.Goals.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	response := make([]GoalResponse, 0, len(goals))
	for _, goal := range goals {
		response = append(response, toGoalResponse(goal))
	}

	return c.JSON(http.StatusOK, GoalListResponse{Goals: response})
}

// Create создает цель.
func (h *GoalHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	input, err := bindGoalInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	goal, err := h.Goals.Create(c.Request().Context(), userID, input)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid goal amounts")
		}
		return serverError(c)
	}

	response := toGoalResponse(goal)
	publishGoalUpdated(h.Notifier, userID, response)
	return c.JSON(http.StatusCreated, response)
}

// Update обновляет цель.
func (h *GoalHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return badRequest(c, "invalid goal id")
	}

	input, err := bindGoalInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	goal, err := h.Goals.Update(c.Request().Context(), userID, id, input)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound(c, "goal not found")
		case errors.Is(err, repository.ErrInvalid):
			return badRequest(c, "invalid goal amounts")
		}
		return serverError(c)
	}

	response := toGoalResponse(goal)
	publishGoalUpdated(h.Notifier, userID, response)
	return c.JSON(http.StatusOK, response)
}

// Contribute добавляет взнос к накопленной сумме цели. Отрицательный взнос
// допустим, пока сумма не уходит ниже нуля.
func (h *GoalHandler) Contribute(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return badRequest(c, "invalid goal id")
	}

	var req ContributeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	amount, ok := money.Parse(req.Amount)
	if !ok || amount == 0 {
		return badRequest(c, "invalid amount")
	}

	goal, err := h.Goals.Contribute(c.Request().Context(), userID, id, money.Round2(amount))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound(c, "goal not found")
		case errors.Is(err, repository.ErrInvalid):
			return badRequest(c, "contribution would make the saved amount negative")
		}
		return serverError(c)
	}

	response := toGoalResponse(goal)
	publishGoalUpdated(h.Notifier, userID, response)
	return c.JSON(http.StatusOK, response)
}

// Delete удаляет цель.
func (h *GoalHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return badRequest(c, "invalid goal id")
	}

	if err := h.Goals.Delete(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "goal not found")
		}
		return serverError(c)
	}

	return c.NoContent(http.StatusNoContent)
}

func bindGoalInput(c echo.Context) (repository.GoalInput, error) {
	var req GoalRequest
	if err := c.Bind(&req); err != nil {
		return repository.GoalInput{}, errors.New("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return repository.GoalInput{}, errors.New("validation failed")
	}

	return goalInputFromRequest(req)
}

func goalInputFromRequest(req GoalRequest) (repository.GoalInput, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return repository.GoalInput{}, errors.New("name is required")
	}

	target, ok := money.Parse(req.TargetAmount)
	if !ok || target <= 0 {
		return repository.GoalInput{}, errors.New("target_amount must be positive")
	}

	var current float64
	if req.CurrentAmount != nil {
		current, ok = money.Parse(req.CurrentAmount)
		if !ok || current < 0 {
			return repository.GoalInput{}, errors.New("invalid current_amount")
		}
	}

	deadline, err := parseOptionalDate(req.Deadline, "deadline")
	if err != nil {
		return repository.GoalInput{}, err
	}

	var color *string
	if req.Color != nil {
		value, err := validateHexColor(*req.Color)
		if err != nil {
			return repository.GoalInput{}, err
		}
		color = &value
	}

	return repository.GoalInput{
		Name:          name,
		TargetAmount:  money.Round2(target),
		CurrentAmount: money.Round2(current),
		Deadline:      deadline,
		Color:         color,
	}, nil
}

// goalProgress возвращает процент выполнения цели в диапазоне 0..100.
func goalProgress(current, target float64) float64 {
	if target <= 0 || current <= 0 {
		return 0
	}
	if current >= target {
		return 100
	}

	return money.Round2(current / target * 100)
}

func toGoalResponse(goal models.Goal) GoalResponse {
	var deadline *string
	if goal.Deadline != nil {
		value := goal.Deadline.Format(models.DateLayout)
		deadline = &value
	}

	return GoalResponse{
		ID:            goal.ID,
		Name:          goal.Name,
		TargetAmount:  goal.TargetAmount,
		CurrentAmount: goal.CurrentAmount,
		Progress:      goalProgress(goal.CurrentAmount, goal.TargetAmount),
		Completed:     goal.CurrentAmount >= goal.TargetAmount,
		Deadline:      deadline,
		Color:         goal.Color,
		CreatedAt:     goal.CreatedAt.Format(timeLayout),
		UpdatedAt:     goal.UpdatedAt.Format(timeLayout),
	}
}
