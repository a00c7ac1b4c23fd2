// Package active реализует HTTP-обработчик чтения активной подписки.
package active

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sublyhq/subly/internal/http/middlewarectx"
	"github.com/sublyhq/subly/internal/http/response"
	"github.com/sublyhq/subly/internal/lib/sl"
	"github.com/sublyhq/subly/internal/models"
	"github.com/sublyhq/subly/internal/storage"
)

// Service — интерфейс жизненного цикла подписок, нужный обработчику.
type Service interface {
	GetActive(ctx context.Context, userUID string) (*models.SubscriptionDetail, error)
}

// Handler обрабатывает HTTP-запросы чтения активной подписки.
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
	const op = "handlers.subscription.active"

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

	detail, err := h.service.GetActive(r.Context(), userUID)
	if errors.Is(err, storage.ErrNoActiveSubscription) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("no active subscription found"))
		return
	}
	if err != nil {
		log.Error("failed to get active subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.OKWithData(subscriptionJSON(detail)))
}

func subscriptionJSON(d *models.SubscriptionDetail) map[string]any {
	var endDate any
	if d.EndDate != nil {
		endDate = d.EndDate.Format(time.RFC3339)
	}
	return map[string]any{
		"subscription_id": d.ID,
		"plan_id":         d.PlanID,
		"plan_name":       d.PlanName,
		"plan_price":      d.PlanPrice,
		"start_date":      d.StartDate.Format(time.RFC3339),
		"end_date":        endDate,
		"is_active":       d.IsActive,
	}
}
