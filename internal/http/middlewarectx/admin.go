package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sublyhq/subly/internal/http/response"
)

// AdminOnly пропускает дальше только запросы с ролью admin в контексте.
// Ставится после JWTMiddleware; при любой другой роли возвращает 403.
func AdminOnly(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(Role).(string)
			if !ok || role != "admin" {
				log.Warn("forbidden: admin role required",
					slog.String("role", role))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("you are not authorized to perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
