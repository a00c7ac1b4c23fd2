// Package health реализует HTTP-обработчик проверки готовности сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sublyhq/subly/internal/http/response"
	"github.com/sublyhq/subly/internal/lib/sl"
	"github.com/sublyhq/subly/internal/storage"
)

// Handler обрабатывает запросы готовности: проверяет соединение с базой
// и наличие таблицы журнала подписок.
type Handler struct {
	log *slog.Logger
	db  *storage.Storage
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, db *storage.Storage) *Handler {
	return &Handler{
		log: log,
		db:  db,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := storage.CheckDatabaseReady(h.db); err != nil {
		h.log.Error("database is not ready", sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database is not ready"))
		return
	}
	render.JSON(w, r, response.OK())
}
