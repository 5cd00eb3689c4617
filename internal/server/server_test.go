package server

import (
	"path/filepath"
	"testing"

	"example.com/budget-tracker/backend/internal/ai"
	"example.com/budget-tracker/backend/internal/config"
	"example.com/budget-tracker/backend/internal/insights"
	"example.com/budget-tracker/backend/internal/localstore"
)

// TestNewAIClient проверяет выбор клиента по провайдеру.
func TestNewAIClient(t *testing.T) {
	if _, ok := newAIClient(config.AIConfig{Provider: config.ProviderGemini}).(*ai.GeminiClient); !ok {
		t.Fatal("expected gemini client")
	}
	if _, ok := newAIClient(config.AIConfig{Provider: config.ProviderOpenAI}).(*ai.OpenAIClient); !ok {
		t.Fatal("expected openai client")
	}
}

// TestInsightStore проверяет подключение локального резервного хранилища.
func TestInsightStore(t *testing.T) {
	primary := insights.NewMemoryStore()

	if got := insightStore(primary, nil, nil); got != primary {
		t.Fatal("expected primary store without local fallback")
	}

	local, err := localstore.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	defer local.Close()

	if _, ok := insightStore(primary, local, nil).(*localstore.Fallback); !ok {
		t.Fatal("expected fallback store")
	}
}

// TestValidator проверяет валидацию по тегам.
func TestValidator(t *testing.T) {
	type payload struct {
		Email string `validate:"required,email"`
	}

	v := NewValidator()
	if err := v.Validate(&payload{Email: "user@example.com"}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	if err := v.Validate(&payload{Email: "nope"}); err == nil {
		t.Fatal("expected validation error")
	}
}

// TestValidatorTone проверяет правило tone.
func TestValidatorTone(t *testing.T) {
	type payload struct {
		Tone *string `json:"tone" validate:"omitempty,tone"`
	}

	v := NewValidator()
	income := "income"
	gift := "gift"

	if err := v.Validate(&payload{}); err != nil {
		t.Fatalf("expected missing tone to pass, got %v", err)
	}
	if err := v.Validate(&payload{Tone: &income}); err != nil {
		t.Fatalf("expected income to pass, got %v", err)
	}
	if err := v.Validate(&payload{Tone: &gift}); err == nil {
		t.Fatal("expected unknown tone to fail")
	}
}
