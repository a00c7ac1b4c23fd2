package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"

	"github.com/sublyhq/subly/internal/config"
	authservice "github.com/sublyhq/subly/internal/services/auth"
	catalogservice "github.com/sublyhq/subly/internal/services/catalog"
	subscriptionservice "github.com/sublyhq/subly/internal/services/subscription"
	"github.com/sublyhq/subly/internal/storage"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterRoutes_Smoke(t *testing.T) {
	logger := newNoopLogger()

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &storage.Storage{},
		authservice.New(nil, nil, logger),
		catalogservice.New(nil, nil, logger),
		subscriptionservice.New(nil, nil, logger))

	t.Run("metrics endpoint is served", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown route returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("protected route rejects request without token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/subscriptions/active", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestServerTimeoutsFromConfig(t *testing.T) {
	cfg := &config.Config{
		HTTPServer: config.HTTPServer{
			Address:     "localhost:8080",
			Timeout:     5 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		RedisConnection: config.RedisConnection{
			Timeout: 3 * time.Second,
		},
	}

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// Поля Timeout есть и у HTTP-сервера, и у Redis: выбор всегда
	// делается через имя вложенной структуры.
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 5*time.Second, srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, srv.IdleTimeout)
	assert.NotEqual(t, cfg.RedisConnection.Timeout, srv.ReadTimeout)
}
