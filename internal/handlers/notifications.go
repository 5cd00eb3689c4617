package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/auth"
	"example.com/budget-tracker/backend/internal/insights"
	"example.com/budget-tracker/backend/internal/notifications"
)

type NotificationHandler struct {
	Hub *notifications.Hub
}

// NewNotificationHandler создает SSE-обработчик уведомлений.
func NewNotificationHandler(hub *notifications.Hub) *NotificationHandler {
	return &NotificationHandler{Hub: hub}
}

// Stream открывает SSE-поток событий для пользователя.
func (h *NotificationHandler) Stream(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return serverError(c)
	}

	ch, unsubscribe := h.Hub.Subscribe(userID)
	defer unsubscribe()

	_ = writeSSE(c, notifications.Event{Type: notifications.EventConnected, Data: map[string]string{"user_id": userID.String()}})
	flusher.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeSSE(c, event); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeSSE(c echo.Context, event notifications.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := c.Response().Write([]byte("event: " + event.Type + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}

	return nil
}

func publishTransactionsChanged(hub *notifications.Hub, userID uuid.UUID, action string, transactionID uuid.UUID) {
	if hub == nil {
		return
	}

	hub.Publish(userID, notifications.Event{
		Type: notifications.EventTransactionsChanged,
		Data: map[string]any{
			"action":         action,
			"transaction_id": transactionID.String(),
		},
	})
}

func publishGoalUpdated(hub *notifications.Hub, userID uuid.UUID, goal GoalResponse) {
	if hub == nil {
		return
	}

	hub.Publish(userID, notifications.Event{
		Type: notifications.EventGoalUpdated,
		Data: map[string]any{
			"goal_id":   goal.ID.String(),
			"progress":  goal.Progress,
			"completed": goal.Completed,
		},
	})
}

func publishInsightsUpdated(hub *notifications.Hub, userID uuid.UUID, envelope insights.Envelope) {
	if hub == nil {
		return
	}

	hub.Publish(userID, notifications.Event{
		Type: notifications.EventInsightsUpdated,
		Data: map[string]any{
			"generated_at": envelope.GeneratedAt.Format(timeLayout),
			"period_days":  envelope.PeriodDays,
			"summary":      envelope.Insights.Summary,
		},
	})
}
