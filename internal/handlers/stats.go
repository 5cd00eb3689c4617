package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/auth"
	"example.com/budget-tracker/backend/internal/insights"
	"example.com/budget-tracker/backend/internal/models"
	"example.com/budget-tracker/backend/internal/money"
	"example.com/budget-tracker/backend/internal/repository"
)

const maxOverviewDays = 366

type StatsHandler struct {
	Stats        *repository.StatsRepository
	Transactions transactionLister
	PeriodDays   int
}

// NewStatsHandler создает обработчик статистики.
func NewStatsHandler(stats *repository.StatsRepository, transactions transactionLister, periodDays int) *StatsHandler {
	if periodDays <= 0 {
		periodDays = insights.DefaultPeriodDays
	}

	return &StatsHandler{Stats: stats, Transactions: transactions, PeriodDays: periodDays}
}

type OverviewResponse struct {
	PeriodDays        int               `json:"period_days"`
	Snapshot          insights.Snapshot `json:"snapshot"`
	TotalTransactions int               `json:"total_transactions"`
	TotalGoals        int               `json:"total_goals"`
	CompletedGoals    int               `json:"completed_goals"`
	SavedTowardGoals  float64           `json:"saved_toward_goals"`
}

type MonthlyComparisonResponse struct {
	Months []MonthlyComparisonItem `json:"months"`
}

type MonthlyComparisonItem struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

// Overview возвращает снимок транзакций за последние days дней и счетчики целей.
func (h *StatsHandler) Overview(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	days := h.PeriodDays
	if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "invalid days")
		}
		if parsed > maxOverviewDays {
			parsed = maxOverviewDays
		}
		days = parsed
	}

	from := time.Now().UTC().AddDate(0, 0, -days)
	stored, err := h.Transactions.List(c.Request().Context(), userID, repository.TransactionFilter{From: &from})
	if err != nil {
		return serverError(c)
	}

	stats, err := h.Stats.Overview(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, OverviewResponse{
		PeriodDays:        days,
		Snapshot:          computeStoredSnapshot(stored),
		TotalTransactions: stats.TotalTransactions,
		TotalGoals:        stats.TotalGoals,
		CompletedGoals:    stats.CompletedGoals,
		SavedTowardGoals:  stats.SavedTowardGoals,
	})
}

// MonthlyComparison возвращает доходы и расходы по месяцам.
func (h *StatsHandler) MonthlyComparison(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	months := 6
	if raw := c.QueryParam("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "invalid months")
		}
		if parsed > 24 {
			parsed = 24
		}
		months = parsed
	}

	items, err := h.Stats.MonthlyComparison(c.Request().Context(), userID, months)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid months")
		}
		return serverError(c)
	}

	response := make([]MonthlyComparisonItem, 0, len(items))
	for _, item := range items {
		income := money.Round2(item.Income)
		expenses := money.Round2(item.Expenses)
		response = append(response, MonthlyComparisonItem{
			Month:    item.Month.Format("2006-01"),
			Income:   income,
			Expenses: expenses,
			Net:      money.Round2(income - expenses),
		})
	}

	return c.JSON(http.StatusOK, MonthlyComparisonResponse{Months: response})
}

func computeStoredSnapshot(items []models.Transaction) insights.Snapshot {
	return insights.ComputeSnapshot(toInsightTransactions(items))
}

func toInsightTransactions(items []models.Transaction) []insights.Transaction {
	out := make([]insights.Transaction, 0, len(items))
	for _, item := range items {
		var tone insights.Tone
		if item.Tone != nil {
			tone = insights.Tone(*item.Tone)
		}
		out = append(out, insights.Transaction{
			Name:     item.Name,
			Category: item.Category,
			Date:     item.OccurredOn.Format(models.DateLayout),
			Tone:     tone,
			Amount:   item.Amount,
		})
	}

	return out
}
