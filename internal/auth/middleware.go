package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const ContextUserIDKey = "user_id"

var (
	errMissingHeader = errors.New("missing authorization header")
	errInvalidHeader = errors.New("invalid authorization header")
	errInvalidToken  = errors.New("invalid token")
)

// JWTMiddleware проверяет access-токен и сохраняет user_id в контексте.
func JWTMiddleware(manager *TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := userIDFromRequest(c, manager)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.Set(ContextUserIDKey, userID)
			return next(c)
		}
	}
}

// OptionalJWTMiddleware пропускает анонимные запросы, но отклоняет неверный токен.
func OptionalJWTMiddleware(manager *TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := userIDFromRequest(c, manager)
			if errors.Is(err, errMissingHeader) {
				return next(c)
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.Set(ContextUserIDKey, userID)
			return next(c)
		}
	}
}

func userIDFromRequest(c echo.Context, manager *TokenManager) (uuid.UUID, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return uuid.Nil, errMissingHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return uuid.Nil, errInvalidHeader
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return uuid.Nil, errInvalidHeader
	}

	claims, err := manager.ParseAccessToken(tokenString)
	if err != nil {
		return uuid.Nil, errInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return uuid.Nil, errors.New("invalid token subject")
	}

	return userID, nil
}

// UserIDFromContext извлекает идентификатор пользователя из контекста.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(ContextUserIDKey)
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
