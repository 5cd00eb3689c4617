package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB     pinger
	Logger *slog.Logger
}

// NewHealthHandler создает обработчик проверки состояния.
func NewHealthHandler(db pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthHandler{DB: db, Logger: logger}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health возвращает 503, если база недоступна.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		h.Logger.WarnContext(ctx, "database ping failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "unavailable"})
	}

	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}
