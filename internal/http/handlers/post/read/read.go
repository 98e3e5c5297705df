// Package read реализует HTTP-обработчик получения статьи по ID или слагу.
//
// Handler определяет читателя по необязательному токену сессии и возвращает
// либо полный текст, либо усечённое превью платной статьи.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flagship-content/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flagship-content/internal/http/response"
	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/services/post"
)

// Service описывает интерфейс бизнес-логики чтения статьи.
type Service interface {
	Read(ctx context.Context, idOrSlug string, reader *models.User) (*models.PostView, error)
}

// UserService загружает пользователя по uid из токена сессии.
type UserService interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Handler обрабатывает запросы на получение статьи.
type Handler struct {
	log     *slog.Logger
	service Service
	users   UserService
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, users UserService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		users:   users,
	}
}

// Reader возвращает пользователя из контекста запроса, если читатель
// авторизован, и nil для анонимного доступа.
func Reader(r *http.Request, users UserService, log *slog.Logger) *models.User {
	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		return nil
	}
	user, err := users.GetUser(r.Context(), userUID)
	if err != nil {
		log.Warn("failed to load reader, treating as anonymous", sl.Err(err))
		return nil
	}
	return user
}

// ServeHTTP godoc
// @Summary Получить статью
// @Description Возвращает статью по ID или слагу. Полный текст платной статьи
// @Description доступен только подписчикам, анонимный читатель получает превью.
// @Tags Posts
// @Produce  json
// @Param idOrSlug path string true "ID или слаг статьи"
// @Success 200 {object} response.Response "Статья"
// @Failure 404 {object} response.ErrorResponse "Статья не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /posts/{idOrSlug} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.post.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	idOrSlug := chi.URLParam(r, "idOrSlug")
	reader := Reader(r, h.users, log)

	view, err := h.service.Read(r.Context(), idOrSlug, reader)
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			log.Error("post not found", slog.String("idOrSlug", idOrSlug))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("post not found"))
			return
		}
		log.Error("failed to read post", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(view))
}
