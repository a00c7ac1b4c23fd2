package app

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sublyhq/subly/internal/http/handlers/auth/login"
	"github.com/sublyhq/subly/internal/http/handlers/auth/register"
	"github.com/sublyhq/subly/internal/http/handlers/health"
	plancreate "github.com/sublyhq/subly/internal/http/handlers/plans/create"
	planlist "github.com/sublyhq/subly/internal/http/handlers/plans/list"
	"github.com/sublyhq/subly/internal/http/handlers/subscription/active"
	"github.com/sublyhq/subly/internal/http/handlers/subscription/cancel"
	"github.com/sublyhq/subly/internal/http/handlers/subscription/history"
	"github.com/sublyhq/subly/internal/http/handlers/subscription/subscribe"
	"github.com/sublyhq/subly/internal/http/handlers/subscription/upgrade"
	"github.com/sublyhq/subly/internal/http/middlewarectx"
	authservice "github.com/sublyhq/subly/internal/services/auth"
	catalogservice "github.com/sublyhq/subly/internal/services/catalog"
	subscriptionservice "github.com/sublyhq/subly/internal/services/subscription"
	"github.com/sublyhq/subly/internal/storage"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *storage.Storage,
	authService *authservice.Service, catalogService *catalogservice.Service,
	subscriptionService *subscriptionservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authService).ServeHTTP)
		r.Get("/subscriptions/plans", planlist.New(logger, catalogService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, 50, 100))
			r.Post("/subscriptions/subscribe", subscribe.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/active", active.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/history", history.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/cancel", cancel.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/upgrade", upgrade.New(logger, subscriptionService).ServeHTTP)

			// Создание плана доступно только администраторам
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger))
				r.Post("/subscriptions/plans", plancreate.New(logger, catalogService).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
