// Package orderrenew реализует HTTP-обработчик создания заказа на продление
// подписки уже авторизованного пользователя.
package orderrenew

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/flagship-content/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flagship-content/internal/http/response"
	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/services/payment"
)

// Request — структура входных данных заявки на продление.
type Request struct {
	PlanID string `json:"plan_id" validate:"required,oneof=monthly yearly"`
}

// Service описывает интерфейс платёжного ядра для продления подписки.
type Service interface {
	CreateRenewalOrder(ctx context.Context, userUID, planID string) (*payment.CheckoutInfo, error)
}

// Handler обрабатывает запросы на продление подписки.
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

// ServeHTTP godoc
// @Summary Создать заказ на продление подписки
// @Description Создает заказ у платёжного провайдера для продления подписки текущего пользователя.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф продления"
// @Success 200 {object} response.Response "Данные для checkout"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный тариф"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Failure 503 {object} response.ErrorResponse "Платёжная система не настроена"
// @Router /payments/create-order [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.orderrenew"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user UID not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

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

	checkout, err := h.service.CreateRenewalOrder(r.Context(), userUID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotConfigured):
			log.Error("payment system not configured")
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment system not configured"))
		case errors.Is(err, payment.ErrInvalidPlan):
			log.Error("invalid plan", slog.String("plan_id", req.PlanID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid plan selected"))
		case errors.Is(err, payment.ErrProviderOrder):
			log.Error("provider order creation failed", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("failed to create payment order"))
		default:
			log.Error("failed to create renewal order", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("renewal order created", slog.String("order_id", checkout.OrderID))
	render.JSON(w, r, response.StatusOKWithData(checkout))
}
