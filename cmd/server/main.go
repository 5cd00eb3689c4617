package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/budget-tracker/backend/internal/config"
	"example.com/budget-tracker/backend/internal/database"
	"example.com/budget-tracker/backend/internal/localstore"
	"example.com/budget-tracker/backend/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ensureEnvFile()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run поднимает зависимости и HTTP-сервер, пока ctx не отменен.
func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database, "up"); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	local := openLocalStore(cfg.LocalStore, logger)
	if local != nil {
		defer func() { _ = local.Close() }()
	}

	e := server.New(cfg, logger, db, local)
	httpServer := server.NewHTTPServer(cfg.Server, e)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- e.StartServer(httpServer)
	}()
	logger.Info("server started", slog.String("addr", httpServer.Addr), slog.String("env", cfg.Env))

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// openLocalStore открывает резервное SQLite-хранилище кэша инсайтов.
// Ошибка не фатальна: сервис продолжает работать только с PostgreSQL.
func openLocalStore(cfg config.LocalStoreConfig, logger *slog.Logger) *localstore.Store {
	if cfg.Path == "" {
		return nil
	}

	local, err := localstore.Open(cfg.Path)
	if err != nil {
		logger.Warn("local insights store unavailable", slog.String("path", cfg.Path), slog.String("error", err.Error()))
		return nil
	}
	return local
}

// ensureEnvFile подставляет ENV_FILE, если .env лежит рядом или уровнем выше.
func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	for _, candidate := range []string{".env", "../.env"} {
		if _, err := os.Stat(candidate); err == nil {
			_ = os.Setenv("ENV_FILE", candidate)
			return
		}
	}
}
