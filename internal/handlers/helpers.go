package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/models"
)

const timeLayout = time.RFC3339

// parsePeriod разбирает границы периода from/to. Пустая граница остается nil.
func parsePeriod(from, to string) (*time.Time, *time.Time, error) {
	var start, end *time.Time

	if trimmed := strings.TrimSpace(from); trimmed != "" {
		parsed, err := time.Parse(models.DateLayout, trimmed)
		if err != nil {
			return nil, nil, errors.New("invalid from format")
		}
		start = &parsed
	}

	if trimmed := strings.TrimSpace(to); trimmed != "" {
		parsed, err := time.Parse(models.DateLayout, trimmed)
		if err != nil {
			return nil, nil, errors.New("invalid to format")
		}
		end = &parsed
	}

	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, errors.New("to must be after from")
	}

	return start, end, nil
}

func parseOptionalDate(value *string, field string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}

	parsed, err := time.Parse(models.DateLayout, strings.TrimSpace(*value))
	if err != nil {
		return nil, errors.New("invalid " + field + " format")
	}

	return &parsed, nil
}

func validateHexColor(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errors.New("color is required")
	}
	if !isHexColor(trimmed) {
		return "", errors.New("color must be a hex color")
	}

	return trimmed, nil
}

func isHexColor(value string) bool {
	if len(value) != 7 || value[0] != '#' {
		return false
	}

	for i := 1; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}

	return true
}

func parseIDParam(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.Param("id")))
}
