// Package history реализует HTTP-обработчик постраничной истории подписок.
package history

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/sublyhq/subly/internal/http/middlewarectx"
	"github.com/sublyhq/subly/internal/http/response"
	"github.com/sublyhq/subly/internal/lib/sl"
	"github.com/sublyhq/subly/internal/models"
)

// Service — интерфейс жизненного цикла подписок, нужный обработчику.
type Service interface {
	History(ctx context.Context, userUID string, page, perPage int) (*models.HistoryPage, error)
}

// Handler обрабатывает HTTP-запросы истории подписок.
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
	const op = "handlers.subscription.history"

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

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage <= 0 {
		perPage = 10
	}

	result, err := h.service.History(r.Context(), userUID, page, perPage)
	if err != nil {
		log.Error("failed to list subscription history", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	subscriptions := make([]map[string]any, 0, len(result.Subscriptions))
	for _, d := range result.Subscriptions {
		var endDate any
		if d.EndDate != nil {
			endDate = d.EndDate.Format(time.RFC3339)
		}
		subscriptions = append(subscriptions, map[string]any{
			"subscription_id": d.ID,
			"plan_id":         d.PlanID,
			"plan_name":       d.PlanName,
			"plan_price":      d.PlanPrice,
			"start_date":      d.StartDate.Format(time.RFC3339),
			"end_date":        endDate,
			"is_active":       d.IsActive,
		})
	}

	log.Info("history listed", slog.Int("count", len(subscriptions)),
		slog.Int("total", result.Total))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscriptions": subscriptions,
		"total":         result.Total,
		"page":          result.Page,
		"per_page":      result.PerPage,
		"pages":         result.Pages,
	}))
}
