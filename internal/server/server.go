package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/budget-tracker/backend/internal/ai"
	"example.com/budget-tracker/backend/internal/auth"
	"example.com/budget-tracker/backend/internal/config"
	"example.com/budget-tracker/backend/internal/handlers"
	"example.com/budget-tracker/backend/internal/insights"
	"example.com/budget-tracker/backend/internal/localstore"
	"example.com/budget-tracker/backend/internal/notifications"
	"example.com/budget-tracker/backend/internal/repository"
)

// New собирает HTTP-сервер Echo с роутами и зависимостями.
// local может быть nil, тогда кэш инсайтов живет только в Postgres.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool, local *localstore.Store) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	aiRepo := repository.NewAIRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	notificationHub := notifications.NewHub()

	pipeline := insights.NewPipeline(newAIClient(cfg.AI), cfg.AI.Provider, cfg.AI.Model, aiRepo, logger)
	cache := insights.NewKVCache(insightStore(repository.NewInsightCacheRepository(db), local, logger))
	scheduler := insights.NewScheduler(pipeline, cache, insights.SchedulerConfig{
		RefreshInterval: cfg.Insights.RefreshInterval,
		MinTransactions: cfg.Insights.MinTransactions,
		PeriodDays:      cfg.Insights.PeriodDays,
	}, logger)

	authHandler := handlers.NewAuthHandler(userRepo, tokenRepo, tokenManager)
	transactionHandler := handlers.NewTransactionHandler(transactionRepo, notificationHub)
	goalHandler := handlers.NewGoalHandler(goalRepo, notificationHub)
	statsHandler := handlers.NewStatsHandler(statsRepo, transactionRepo, cfg.Insights.PeriodDays)
	insightsHandler := handlers.NewInsightsHandler(
		pipeline,
		scheduler,
		transactionRepo,
		notificationHub,
		handlers.KeyInfo{APIKey: cfg.AI.APIKey, Model: cfg.AI.Model, Production: cfg.IsProduction()},
		cfg.Insights.PeriodDays,
		logger,
	)
	notificationHandler := handlers.NewNotificationHandler(notificationHub)
	adminHandler := handlers.NewAdminHandler(adminRepo)
	healthHandler := handlers.NewHealthHandler(db, logger)

	registerRoutes(
		e,
		healthHandler,
		authHandler,
		transactionHandler,
		goalHandler,
		statsHandler,
		insightsHandler,
		notificationHandler,
		adminHandler,
		auth.JWTMiddleware(tokenManager),
		auth.OptionalJWTMiddleware(tokenManager),
		handlers.AdminMiddleware(userRepo, cfg.Admin.Emails),
		authRateLimiter(cfg.Auth),
		aiRateLimiter(cfg.AI),
	)

	return e
}

func newAIClient(cfg config.AIConfig) ai.Client {
	opts := ai.Options{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
	}

	if cfg.Provider == config.ProviderGemini {
		return ai.NewGeminiClient(opts, cfg.Timeout)
	}
	return ai.NewOpenAIClient(opts, cfg.Timeout)
}

func insightStore(primary insights.KVStore, local *localstore.Store, logger *slog.Logger) insights.KVStore {
	if local == nil {
		return primary
	}

	return localstore.NewFallback(primary, local, logger)
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

func aiRateLimiter(cfg config.AIConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

func rateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60.0),
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
