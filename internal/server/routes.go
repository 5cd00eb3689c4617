package server

import (
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	transactionHandler *handlers.TransactionHandler,
	goalHandler *handlers.GoalHandler,
	statsHandler *handlers.StatsHandler,
	insightsHandler *handlers.InsightsHandler,
	notificationHandler *handlers.NotificationHandler,
	adminHandler *handlers.AdminHandler,
	authMiddleware echo.MiddlewareFunc,
	optionalAuthMiddleware echo.MiddlewareFunc,
	adminMiddleware echo.MiddlewareFunc,
	authRateLimiter echo.MiddlewareFunc,
	aiRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", healthHandler.Health)

	api := e.Group("/api/v1")
	authGroup := api.Group("/auth", authRateLimiter)

	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.POST("/logout-all", authHandler.LogoutAll, authMiddleware)
	authGroup.GET("/me", authHandler.Me, authMiddleware)
	authGroup.PATCH("/me", authHandler.UpdateMe, authMiddleware)

	transactions := api.Group("/transactions", authMiddleware)
	transactions.GET("", transactionHandler.List)
	transactions.POST("", transactionHandler.Create)
	transactions.GET("/export/csv", transactionHandler.ExportCSV)
	transactions.GET("/export/json", transactionHandler.ExportJSON)
	transactions.GET("/:id", transactionHandler.Get)
	transactions.PUT("/:id", transactionHandler.Update)
	transactions.DELETE("/:id", transactionHandler.Delete)

	goals := api.Group("/goals", authMiddleware)
	goals.GET("", goalHandler.List)
	goals.POST("", goalHandler.Create)
	goals.PUT("/:id", goalHandler.Update)
	goals.POST("/:id/contribute", goalHandler.Contribute)
	goals.DELETE("/:id", goalHandler.Delete)

	stats := api.Group("/stats", authMiddleware)
	stats.GET("/overview", statsHandler.Overview)
	stats.GET("/monthly-comparison", statsHandler.MonthlyComparison)

	insightsGroup := api.Group("/insights", optionalAuthMiddleware)
	insightsGroup.POST("", insightsHandler.Generate, aiRateLimiter)
	insightsGroup.POST("/summary", insightsHandler.Summary, aiRateLimiter)
	insightsGroup.POST("/summary/regenerate", insightsHandler.Regenerate, aiRateLimiter)
	insightsGroup.GET("/key-status", insightsHandler.KeyStatus)

	notifications := api.Group("/notifications", authMiddleware)
	notifications.GET("/stream", notificationHandler.Stream)

	admin := api.Group("/admin", authMiddleware, adminMiddleware)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/ai-requests", adminHandler.ListAIRequests)
	admin.GET("/usage", adminHandler.Usage)
}
