// Package list реализует HTTP-обработчик списка статей с пагинацией.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/post/read"
	"github.com/magabrotheeeer/flagship-content/internal/http/response"
	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/models"
)

// Service описывает интерфейс бизнес-логики списка статей.
type Service interface {
	List(ctx context.Context, reader *models.User, limit, offset int) ([]*models.PostView, error)
}

// Handler обрабатывает запросы списка статей.
type Handler struct {
	log     *slog.Logger
	service Service
	users   read.UserService
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, users read.UserService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		users:   users,
	}
}

// ServeHTTP godoc
// @Summary Список статей
// @Description Возвращает статьи, новые первыми. Платные статьи отдаются
// @Description в виде превью для читателей без активной подписки.
// @Tags Posts
// @Produce  json
// @Param limit query int false "Количество статей (по умолчанию 20)"
// @Param offset query int false "Смещение (по умолчанию 0)"
// @Success 200 {object} response.Response "Список статей"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /posts [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.post.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	reader := read.Reader(r, h.users, log)

	posts, err := h.service.List(r.Context(), reader, limit, offset)
	if err != nil {
		log.Error("failed to list posts", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"posts": posts,
	}))
}
