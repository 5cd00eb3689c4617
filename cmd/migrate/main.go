package main

import (
	"flag"
	"log/slog"
	"os"

	"example.com/budget-tracker/backend/internal/config"
	"example.com/budget-tracker/backend/internal/database"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if os.Getenv("ENV_FILE") == "" {
		if _, err := os.Stat(".env"); err == nil {
			_ = os.Setenv("ENV_FILE", ".env")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := database.Migrate(cfg.Database, *direction); err != nil {
		logger.Error("migration failed", slog.String("direction", *direction), slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("migrations applied", slog.String("direction", *direction))
}
