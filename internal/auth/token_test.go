package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestManager(now time.Time) *TokenManager {
	manager := NewTokenManager("secret", "budget-tracker", 15*time.Minute, 24*time.Hour)
	manager.now = func() time.Time { return now }
	return manager
}

// TestTokenPairRoundTrip проверяет выпуск и разбор пары токенов.
func TestTokenPairRoundTrip(t *testing.T) {
	now := time.Now()
	manager := newTestManager(now)
	userID := uuid.New()
	refreshID := uuid.New()

	pair, err := manager.NewTokenPair(userID, refreshID)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}
	if !pair.AccessExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected access expiry: %v", pair.AccessExpiresAt)
	}

	access, err := manager.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if got, err := access.UserID(); err != nil || got != userID {
		t.Fatalf("unexpected subject: %v %v", got, err)
	}

	refresh, err := manager.ParseRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if got, err := refresh.TokenID(); err != nil || got != refreshID {
		t.Fatalf("unexpected token id: %v %v", got, err)
	}
}

// TestTokenTypeMismatch проверяет, что refresh-токен не принимается как access.
func TestTokenTypeMismatch(t *testing.T) {
	manager := newTestManager(time.Now())

	pair, err := manager.NewTokenPair(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}

	if _, err := manager.ParseAccessToken(pair.RefreshToken); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}

// TestTokenExpired проверяет отказ на истекшем токене с учетом допуска часов.
func TestTokenExpired(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	manager := newTestManager(issued)

	pair, err := manager.NewTokenPair(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}

	manager.now = func() time.Time { return issued.Add(15*time.Minute + 10*time.Second) }
	if _, err := manager.ParseAccessToken(pair.AccessToken); err != nil {
		t.Fatalf("expected token within leeway, got %v", err)
	}

	manager.now = func() time.Time { return issued.Add(20 * time.Minute) }
	if _, err := manager.ParseAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

// TestTokenWrongIssuer проверяет отказ на чужом issuer и секрете.
func TestTokenWrongIssuer(t *testing.T) {
	now := time.Now()
	pair, err := newTestManager(now).NewTokenPair(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}

	other := NewTokenManager("secret", "someone-else", time.Minute, time.Minute)
	if _, err := other.ParseAccessToken(pair.AccessToken); err == nil {
		t.Fatal("expected issuer mismatch")
	}

	wrongSecret := NewTokenManager("other-secret", "budget-tracker", time.Minute, time.Minute)
	if _, err := wrongSecret.ParseAccessToken(pair.AccessToken); err == nil {
		t.Fatal("expected signature mismatch")
	}
}
