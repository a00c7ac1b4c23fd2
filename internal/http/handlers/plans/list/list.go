// Package list реализует HTTP-обработчик списка тарифных планов.
// Конечная точка открытая: каталог доступен без авторизации.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sublyhq/subly/internal/http/response"
	"github.com/sublyhq/subly/internal/lib/sl"
	"github.com/sublyhq/subly/internal/models"
)

// Service описывает интерфейс каталога планов.
type Service interface {
	List(ctx context.Context) ([]*models.Plan, error)
}

// Handler обрабатывает HTTP-запросы списка планов.
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
	const op = "handlers.plans.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	result := make([]map[string]any, 0, len(plans))
	for _, plan := range plans {
		result = append(result, map[string]any{
			"id":          plan.ID,
			"name":        plan.Name,
			"price":       plan.Price,
			"description": plan.Description,
			"features":    plan.FeatureList(),
		})
	}

	log.Info("plans listed", slog.Int("count", len(result)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"plans": result,
	}))
}
