// Package upgrade реализует HTTP-обработчик смены тарифного плана.
// Без активной подписки ведёт себя как оформление новой.
package upgrade

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/sublyhq/subly/internal/http/middlewarectx"
	"github.com/sublyhq/subly/internal/http/response"
	"github.com/sublyhq/subly/internal/lib/sl"
	"github.com/sublyhq/subly/internal/models"
	"github.com/sublyhq/subly/internal/storage"
)

// Service — интерфейс жизненного цикла подписок, нужный обработчику.
type Service interface {
	Upgrade(ctx context.Context, userUID string, req models.SubscribeRequest) (*models.SubscriptionReceipt, error)
}

// Handler обрабатывает HTTP-запросы смены плана.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.upgrade"

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

	var req models.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	receipt, err := h.service.Upgrade(r.Context(), userUID, req)
	switch {
	case errors.Is(err, storage.ErrPlanNotFound):
		log.Info("unknown plan", slog.Int("plan_id", req.PlanID))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("invalid plan"))
		return
	case errors.Is(err, storage.ErrSamePlan):
		log.Info("upgrade to the same plan rejected", slog.Int("plan_id", req.PlanID))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("already subscribed to this plan"))
		return
	case err != nil:
		log.Error("failed to upgrade subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("subscription upgraded", slog.Int("id", receipt.ID),
		slog.String("plan", receipt.PlanName))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription_id": receipt.ID,
		"plan":            receipt.PlanName,
		"end_date":        receipt.EndDate.Format(time.RFC3339),
	}))
}
