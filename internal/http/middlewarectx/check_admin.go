package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flagship-content/internal/http/response"
)

// AdminOnlyMiddleware создает middleware, пропускающий только администраторов.
// Должен стоять после JWTMiddleware, который кладёт признак в контекст.
func AdminOnlyMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			isAdmin, ok := r.Context().Value(IsAdmin).(bool)
			if !ok || !isAdmin {
				log.Error("admin access denied")
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
