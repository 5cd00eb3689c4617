package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Env        string
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	AI         AIConfig
	Insights   InsightsConfig
	LocalStore LocalStoreConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

type AIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	Temperature        float64
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxOutputTokens    int
}

type InsightsConfig struct {
	PeriodDays      int
	RefreshInterval time.Duration
	MinTransactions int
}

// LocalStoreConfig описывает SQLite-файл для резервного хранения кэша инсайтов.
// Пустой Path отключает резервное хранилище.
type LocalStoreConfig struct {
	Path string
}

type AdminConfig struct {
	Emails []string
}

// IsProduction сообщает, запущен ли сервис в боевом окружении.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load загружает конфигурацию приложения из окружения и .env.
// Возвращается первая ошибка разбора переменной или проверки значений.
func Load() (Config, error) {
	if err := loadEnv(); err != nil {
		return Config{}, err
	}

	env := &envReader{}
	cfg := Config{
		Env: getEnv("APP_ENV", "local"),
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         env.int("SERVER_PORT", 8080),
			ReadTimeout:  env.duration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: env.duration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  env.duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            env.int("DB_PORT", 5432),
			User:            getEnv("DB_USER", "budget"),
			Password:        getEnv("DB_PASSWORD", "budget"),
			Name:            getEnv("DB_NAME", "budget_tracker"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    env.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    env.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxIdleTime: env.duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     env.bool("DB_AUTO_MIGRATE", false),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			JWTIssuer:          getEnv("JWT_ISSUER", "budget-tracker"),
			AccessTokenTTL:     env.duration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL:    env.duration("JWT_REFRESH_TTL", 7*24*time.Hour),
			RateLimitPerMinute: env.int("AUTH_RATE_LIMIT_PER_MINUTE", 60),
			RateLimitBurst:     env.int("AUTH_RATE_LIMIT_BURST", 10),
		},
		AI: loadAIConfig(env),
		Insights: InsightsConfig{
			PeriodDays:      env.int("INSIGHTS_PERIOD_DAYS", 14),
			RefreshInterval: env.duration("INSIGHTS_REFRESH_INTERVAL", 14*24*time.Hour),
			MinTransactions: env.int("INSIGHTS_MIN_TRANSACTIONS", 8),
		},
		LocalStore: LocalStoreConfig{
			Path: getEnv("LOCAL_STORE_PATH", "insights-cache.db"),
		},
		Admin: AdminConfig{
			Emails: parseCSVEnv("ADMIN_EMAILS"),
		},
	}

	if env.err != nil {
		return cfg, env.err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// loadAIConfig выбирает ключ, модель и адрес по провайдеру.
// Для OpenAI приоритетен OPENAI_API_KEY, для Gemini AI_API_KEY.
func loadAIConfig(env *envReader) AIConfig {
	provider := strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", ProviderOpenAI)))

	cfg := AIConfig{
		Provider:           provider,
		APIKey:             firstEnv("OPENAI_API_KEY", "AI_API_KEY"),
		BaseURL:            getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
		Model:              firstEnv("AI_MODEL", "OPENAI_MODEL"),
		Timeout:            env.duration("AI_TIMEOUT", 30*time.Second),
		Temperature:        env.float("AI_TEMPERATURE", 0.4),
		RateLimitPerMinute: env.int("AI_RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:     env.int("AI_RATE_LIMIT_BURST", 10),
		MaxOutputTokens:    env.int("AI_MAX_OUTPUT_TOKENS", 4096),
	}
	defaultModel := "gpt-4o-mini"

	if provider == ProviderGemini {
		cfg.APIKey = firstEnv("AI_API_KEY", "GEMINI_API_KEY")
		cfg.BaseURL = getEnv("AI_BASE_URL", "")
		cfg.Model = getEnv("AI_MODEL", "")
		defaultModel = "gemini-1.5-flash"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	return cfg
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be greater than 0")
	}

	if c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("JWT_REFRESH_TTL must be greater than 0")
	}

	if c.Auth.RateLimitPerMinute <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_PER_MINUTE must be greater than 0")
	}

	if c.Auth.RateLimitBurst <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_BURST must be greater than 0")
	}

	if c.AI.RateLimitPerMinute <= 0 {
		return fmt.Errorf("AI_RATE_LIMIT_PER_MINUTE must be greater than 0")
	}

	if c.AI.RateLimitBurst <= 0 {
		return fmt.Errorf("AI_RATE_LIMIT_BURST must be greater than 0")
	}

	if c.AI.MaxOutputTokens <= 0 {
		return fmt.Errorf("AI_MAX_OUTPUT_TOKENS must be greater than 0")
	}

	if c.AI.Provider != ProviderOpenAI && c.AI.Provider != ProviderGemini {
		return fmt.Errorf("AI_PROVIDER must be %s or %s", ProviderOpenAI, ProviderGemini)
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be between 0 and 2")
	}

	if c.Insights.PeriodDays > 366 {
		return fmt.Errorf("INSIGHTS_PERIOD_DAYS cannot exceed 366")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}

	return ""
}

// envReader разбирает типизированные переменные окружения и запоминает первую ошибку.
// После ошибки остальные переменные возвращают значения по умолчанию.
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	value, ok := os.LookupEnv(key)
	return strings.TrimSpace(value), ok
}

func (r *envReader) fail(key, kind string, err error) {
	r.err = fmt.Errorf("%s must be %s: %w", key, kind, err)
}

// int требует положительное целое.
func (r *envReader) int(key string, fallback int) int {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, "an integer", err)
		return fallback
	}
	if parsed <= 0 {
		r.err = fmt.Errorf("%s must be greater than 0", key)
		return fallback
	}
	return parsed
}

// duration требует положительную длительность в формате time.ParseDuration.
func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, "a duration", err)
		return fallback
	}
	if parsed <= 0 {
		r.err = fmt.Errorf("%s must be greater than 0", key)
		return fallback
	}
	return parsed
}

func (r *envReader) float(key string, fallback float64) float64 {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(key, "a number", err)
		return fallback
	}
	return parsed
}

// bool считает пустое значение незаданным.
func (r *envReader) bool(key string, fallback bool) bool {
	value, ok := r.lookup(key)
	if !ok || value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, "a boolean", err)
		return fallback
	}
	return parsed
}

func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
