// Package contact реализует HTTP-обработчик формы обратной связи.
//
// Handler валидирует сообщение и публикует его в очередь уведомлений,
// откуда сервис отправки пересылает его на служебный email.
package contact

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/flagship-content/internal/http/response"
	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/rabbitmq"
)

// Request — структура входных данных формы обратной связи.
type Request struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	WhatsApp string `json:"whatsapp,omitempty" validate:"omitempty,min=5,max=20"`
	Message  string `json:"message" validate:"required,min=5,max=5000"`
}

// Publisher публикует сообщения в брокер уведомлений.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Handler обрабатывает сообщения формы обратной связи.
type Handler struct {
	log       *slog.Logger
	publisher Publisher
	validate  *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, publisher Publisher) *Handler {
	return &Handler{
		log:       log,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отправить сообщение обратной связи
// @Description Принимает сообщение с сайта и ставит его в очередь на отправку.
// @Tags Contact
// @Accept  json
// @Produce  json
// @Param request body Request true "Сообщение обратной связи"
// @Success 200 {object} response.Response "Сообщение принято"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Очередь уведомлений недоступна"
// @Router /contact [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if h.publisher == nil {
		log.Error("notification broker unavailable")
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("contact form temporarily unavailable"))
		return
	}

	msg := models.ContactMessage{
		Name:     req.Name,
		Email:    req.Email,
		WhatsApp: req.WhatsApp,
		Message:  req.Message,
	}
	if err := h.publisher.Publish(rabbitmq.RoutingKeyContact, msg); err != nil {
		log.Error("failed to publish contact message", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("contact form temporarily unavailable"))
		return
	}

	log.Info("contact message queued", slog.String("email", req.Email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "thanks for reaching out, we will get back to you soon",
	}))
}
