// Package app собирает приложение: хранилище, миграции, кеш, сервисы,
// маршруты и HTTP-сервер с корректным завершением. Все зависимости
// передаются явно при конструировании, глобальных синглтонов нет.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/sublyhq/subly/internal/cache"
	"github.com/sublyhq/subly/internal/config"
	jwtlib "github.com/sublyhq/subly/internal/lib/jwt"
	"github.com/sublyhq/subly/internal/migrations"
	authservice "github.com/sublyhq/subly/internal/services/auth"
	catalogservice "github.com/sublyhq/subly/internal/services/catalog"
	subscriptionservice "github.com/sublyhq/subly/internal/services/subscription"
	"github.com/sublyhq/subly/internal/storage"
)

// App инкапсулирует HTTP-сервер и его зависимости.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
}

// New создаёт приложение: подключает хранилище и кеш, применяет миграции,
// заполняет каталог планов по умолчанию и создаёт админа, если их ещё нет.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwtlib.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.New(db, jwtMaker, logger)
	catalogService := catalogservice.New(db, cacheRedis, logger)
	subscriptionService := subscriptionservice.New(db, cacheRedis, logger)

	if err := catalogService.SeedDefaults(ctx); err != nil {
		return nil, err
	}
	if err := authService.EnsureAdmin(ctx, cfg.AdminPassword); err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, authService, catalogService, subscriptionService)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run запускает HTTP-сервер и завершает его корректно по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.db.DB.Close()
		return err
	}
}
