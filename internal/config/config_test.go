package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

// TestParseCSVEnv проверяет разбор списка email из ENV.
func TestParseCSVEnv(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", " Admin@example.com, ,USER@Example.com ")

	got := parseCSVEnv("ADMIN_EMAILS")
	want := []string{"admin@example.com", "user@example.com"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

// TestParseCSVEnvMissing проверяет поведение при отсутствии переменной.
func TestParseCSVEnvMissing(t *testing.T) {
	got := parseCSVEnv("MISSING_ENV")
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"AI_PROVIDER", "AI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "AI_MODEL", "OPENAI_MODEL",
		"AI_BASE_URL", "AI_TIMEOUT", "AI_TEMPERATURE", "INSIGHTS_PERIOD_DAYS", "INSIGHTS_REFRESH_INTERVAL",
		"INSIGHTS_MIN_TRANSACTIONS", "DB_AUTO_MIGRATE", "APP_ENV",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "test-secret")
}

// TestLoadDefaults проверяет значения по умолчанию для AI и инсайтов.
func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OPENAI_API_KEY", " sk-test ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AI.Provider != ProviderOpenAI || cfg.AI.Model != "gpt-4o-mini" || cfg.AI.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.AI.APIKey != "sk-test" {
		t.Fatalf("expected trimmed key, got %q", cfg.AI.APIKey)
	}
	if cfg.AI.Timeout != 30*time.Second || cfg.AI.Temperature != 0.4 {
		t.Fatalf("unexpected ai timeout/temperature: %+v", cfg.AI)
	}
	if cfg.Insights.PeriodDays != 14 || cfg.Insights.RefreshInterval != 336*time.Hour || cfg.Insights.MinTransactions != 8 {
		t.Fatalf("unexpected insights config: %+v", cfg.Insights)
	}
}

// TestLoadGeminiProvider проверяет выбор модели и ключа для Gemini.
func TestLoadGeminiProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AI.Provider != ProviderGemini || cfg.AI.APIKey != "gem-key" || cfg.AI.Model != "gemini-1.5-flash" {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
}

// TestLoadInvalidProvider проверяет отказ на неизвестном провайдере.
func TestLoadInvalidProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AI_PROVIDER", "groq")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

// TestLoadInvalidTemperature проверяет проверку температуры.
func TestLoadInvalidTemperature(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AI_TEMPERATURE", "warm")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid temperature")
	}
}

// TestLoadAutoMigrate проверяет флаг автоматических миграций.
func TestLoadAutoMigrate(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.AutoMigrate {
		t.Fatal("auto migrate must be off by default")
	}

	t.Setenv("DB_AUTO_MIGRATE", "true")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Database.AutoMigrate {
		t.Fatal("expected auto migrate to be enabled")
	}

	t.Setenv("DB_AUTO_MIGRATE", "maybe")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}

// TestEnvReaderFirstError проверяет, что сохраняется первая ошибка разбора.
func TestEnvReaderFirstError(t *testing.T) {
	t.Setenv("TEST_PORT", "0")
	t.Setenv("TEST_TIMEOUT", "soon")

	env := &envReader{}
	if got := env.int("TEST_PORT", 80); got != 80 {
		t.Fatalf("expected fallback 80, got %d", got)
	}
	if got := env.duration("TEST_TIMEOUT", time.Second); got != time.Second {
		t.Fatalf("expected fallback duration, got %v", got)
	}

	if env.err == nil || env.err.Error() != "TEST_PORT must be greater than 0" {
		t.Fatalf("unexpected error: %v", env.err)
	}
}
