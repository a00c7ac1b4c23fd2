// Package create реализует HTTP-обработчик создания тарифного плана.
// Доступен только администраторам: маршрут закрыт middleware AdminOnly.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/sublyhq/subly/internal/http/response"
	"github.com/sublyhq/subly/internal/lib/sl"
	"github.com/sublyhq/subly/internal/models"
	"github.com/sublyhq/subly/internal/storage"
)

// Service описывает интерфейс каталога планов.
type Service interface {
	Create(ctx context.Context, req models.CreatePlanRequest) (int, error)
}

// Handler обрабатывает HTTP-запросы создания плана.
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
	const op = "handlers.plans.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreatePlanRequest
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

	id, err := h.service.Create(r.Context(), req)
	if errors.Is(err, storage.ErrPlanExists) {
		log.Info("plan name conflict", slog.String("name", req.Name))
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("plan with this name already exists"))
		return
	}
	if err != nil {
		log.Error("failed to create plan", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"plan_id": id,
		"name":    req.Name,
		"price":   req.Price,
	}))
}
