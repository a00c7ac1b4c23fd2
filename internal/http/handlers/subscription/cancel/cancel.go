// Package cancel реализует HTTP-обработчик отмены активной подписки.
// Повторная отмена возвращает 404 "нечего отменять", а не ошибку.
package cancel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sublyhq/subly/internal/http/middlewarectx"
	"github.com/sublyhq/subly/internal/http/response"
	"github.com/sublyhq/subly/internal/lib/sl"
	"github.com/sublyhq/subly/internal/storage"
)

// Service — интерфейс жизненного цикла подписок, нужный обработчику.
type Service interface {
	Cancel(ctx context.Context, userUID string) error
}

// Handler обрабатывает HTTP-запросы отмены подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	err := h.service.Cancel(r.Context(), userUID)
	if errors.Is(err, storage.ErrNoActiveSubscription) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("no active subscription found"))
		return
	}
	if err != nil {
		log.Error("failed to cancel subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("subscription cancelled", slog.String("user_uid", userUID))
	render.JSON(w, r, response.OK())
}
