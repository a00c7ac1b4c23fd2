// Package subscribe реализует HTTP-обработчик оформления подписки.
// Пользователь определяется по JWT из контекста запроса.
package subscribe

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
	Subscribe(ctx context.Context, userUID string, req models.SubscribeRequest) (*models.SubscriptionReceipt, error)
	GetActive(ctx context.Context, userUID string) (*models.SubscriptionDetail, error)
}

// Handler обрабатывает HTTP-запросы оформления подписки.
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
	const op = "handlers.subscription.subscribe"

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

	receipt, err := h.service.Subscribe(r.Context(), userUID, req)
	switch {
	case errors.Is(err, storage.ErrPlanNotFound):
		log.Info("unknown plan", slog.Int("plan_id", req.PlanID))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("invalid plan"))
		return
	case errors.Is(err, storage.ErrActiveSubscriptionExists):
		// Возвращаем текущий план и срок, чтобы вызывающая сторона
		// могла отличить конфликт от прочих ошибок.
		data := map[string]any{}
		if active, aerr := h.service.GetActive(r.Context(), userUID); aerr == nil {
			data["plan_name"] = active.PlanName
			if active.EndDate != nil {
				data["expires"] = active.EndDate.Format(time.RFC3339)
			}
		}
		log.Info("subscription conflict", slog.String("user_uid", userUID))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  "you already have an active subscription",
			Data:   data,
		})
		return
	case err != nil:
		log.Error("failed to subscribe", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("subscription created", slog.Int("id", receipt.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription_id": receipt.ID,
		"plan":            receipt.PlanName,
		"end_date":        receipt.EndDate.Format(time.RFC3339),
	}))
}
