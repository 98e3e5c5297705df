// Package ordercreate реализует HTTP-обработчик создания незавершённого заказа
// на оформление подписки новым пользователем.
//
// Handler принимает тариф и регистрационные данные, делегирует создание заказа
// платёжному ядру и возвращает данные для открытия внешнего checkout.
// Учётная запись на этом шаге не создаётся.
package ordercreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/flagship-content/internal/http/response"
	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/services/payment"
)

// Request — структура входных данных заявки на оформление подписки.
type Request struct {
	PlanID   string  `json:"plan_id" validate:"required,oneof=monthly yearly"`
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Mobile   *string `json:"mobile,omitempty" validate:"omitempty,min=5,max=20"`
}

// Service описывает интерфейс платёжного ядра для создания заказа.
type Service interface {
	CreatePendingSignupOrder(ctx context.Context, req payment.SignupOrderRequest) (*payment.CheckoutInfo, error)
}

// Handler обрабатывает запросы на создание заказа оформления подписки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Платёжное ядро
	validate *validator.Validate // Валидатор структуры входящих данных
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
// @Summary Создать заказ на оформление подписки
// @Description Создает заказ у платёжного провайдера и незавершённый заказ регистрации.
// @Description Возвращает order_id, key_id и сумму для открытия checkout на фронтенде.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф и регистрационные данные"
// @Success 200 {object} response.Response "Данные для checkout"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный тариф"
// @Failure 409 {object} response.ErrorResponse "Email уже зарегистрирован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Failure 503 {object} response.ErrorResponse "Платёжная система не настроена"
// @Router /payments/create-pending-signup-order [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.ordercreate"

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

	checkout, err := h.service.CreatePendingSignupOrder(r.Context(), payment.SignupOrderRequest{
		PlanID:   req.PlanID,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Mobile:   req.Mobile,
	})
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
		case errors.Is(err, payment.ErrEmailTaken):
			log.Error("email already registered", slog.String("email", req.Email))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("email already registered"))
		case errors.Is(err, payment.ErrProviderOrder):
			log.Error("provider order creation failed", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("failed to create payment order"))
		default:
			log.Error("failed to create pending signup order", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("pending signup order created", slog.String("order_id", checkout.OrderID))
	render.JSON(w, r, response.StatusOKWithData(checkout))
}
