package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string) (uuid.UUID, bool, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var userID uuid.UUID
	var found bool
	err := mw(func(c echo.Context) error {
		userID, found = UserIDFromContext(c)
		return nil
	})(c)

	return userID, found, err
}

func statusOf(err error) int {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return 0
}

// TestJWTMiddleware проверяет обязательную авторизацию.
func TestJWTMiddleware(t *testing.T) {
	manager := NewTokenManager("secret", "budget-tracker", time.Minute, time.Hour)
	userID := uuid.New()
	pair, err := manager.NewTokenPair(userID, uuid.New())
	if err != nil {
		t.Fatalf("token pair: %v", err)
	}

	got, found, err := runMiddleware(t, JWTMiddleware(manager), "Bearer "+pair.AccessToken)
	if err != nil || !found || got != userID {
		t.Fatalf("expected user %s, got %s (found=%v, err=%v)", userID, got, found, err)
	}

	if _, _, err := runMiddleware(t, JWTMiddleware(manager), ""); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %v", err)
	}

	if _, _, err := runMiddleware(t, JWTMiddleware(manager), "Bearer "+pair.RefreshToken); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token, got %v", err)
	}
}

// TestOptionalJWTMiddleware проверяет анонимный доступ и отказ при плохом токене.
func TestOptionalJWTMiddleware(t *testing.T) {
	manager := NewTokenManager("secret", "budget-tracker", time.Minute, time.Hour)

	_, found, err := runMiddleware(t, OptionalJWTMiddleware(manager), "")
	if err != nil || found {
		t.Fatalf("expected anonymous pass-through, found=%v err=%v", found, err)
	}

	if _, _, err := runMiddleware(t, OptionalJWTMiddleware(manager), "Bearer garbage"); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %v", err)
	}
}
