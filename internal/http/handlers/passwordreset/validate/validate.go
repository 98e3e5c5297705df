// Package validate реализует HTTP-обработчик проверки токена сброса пароля.
package validate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flagship-content/internal/http/response"
	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/services/passwordreset"
)

// Service описывает интерфейс проверки токена сброса.
type Service interface {
	Validate(ctx context.Context, token string) error
}

// Handler обрабатывает запросы проверки токена сброса.
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

// ServeHTTP godoc
// @Summary Проверить токен сброса пароля
// @Description Проверяет, что токен существует и не истёк.
// @Tags PasswordReset
// @Produce  json
// @Param token path string true "Токен сброса"
// @Success 200 {object} response.Response "Токен действителен"
// @Failure 400 {object} response.ErrorResponse "Токен недействителен или истёк"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /password-reset/validate/{token} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.passwordreset.validate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := chi.URLParam(r, "token")
	if token == "" {
		log.Error("missing reset token")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing reset token"))
		return
	}

	if err := h.service.Validate(r.Context(), token); err != nil {
		if errors.Is(err, passwordreset.ErrInvalidToken) {
			log.Error("invalid reset token")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid or expired reset token"))
			return
		}
		log.Error("failed to validate reset token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"valid": true,
	}))
}
