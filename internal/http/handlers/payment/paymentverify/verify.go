// Package paymentverify реализует HTTP-обработчик подтверждения оплаты.
//
// Handler принимает идентификаторы заказа и платежа вместе с подписью провайдера,
// делегирует проверку платёжному ядру и возвращает токен сессии активированного
// пользователя. Повторное подтверждение того же заказа идемпотентно.
package paymentverify

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

// Request — структура результата оплаты от внешнего checkout.
type Request struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// Service описывает интерфейс платёжного ядра для подтверждения оплаты.
type Service interface {
	Verify(ctx context.Context, authUID, orderID, paymentID, signature string) (*payment.VerifyResult, error)
}

// Handler обрабатывает запросы подтверждения оплаты.
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
// @Summary Подтвердить оплату
// @Description Проверяет подпись результата оплаты. Для нового пользователя создает
// @Description учётную запись с активной подпиской и возвращает JWT-токен; для
// @Description существующего — продлевает подписку.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификаторы заказа и платежа с подписью"
// @Success 200 {object} response.Response "Результат активации"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или подпись"
// @Failure 403 {object} response.ErrorResponse "Заказ принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Неизвестный или истёкший заказ"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Платёжная система не настроена"
// @Router /payments/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.paymentverify"

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

	// uid присутствует только при подтверждении продления
	authUID, _ := r.Context().Value(middlewarectx.UserUID).(string)

	result, err := h.service.Verify(r.Context(), authUID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotConfigured):
			log.Error("payment system not configured")
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment system not configured"))
		case errors.Is(err, payment.ErrSignatureMismatch):
			log.Error("payment signature mismatch", slog.String("order_id", req.OrderID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid payment signature"))
		case errors.Is(err, payment.ErrUnknownOrder):
			log.Error("unknown or expired order", slog.String("order_id", req.OrderID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("order not found or expired"))
		case errors.Is(err, payment.ErrOrderOwnership):
			log.Error("order ownership mismatch", slog.String("order_id", req.OrderID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("order does not belong to user"))
		default:
			log.Error("payment verification failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("payment verified",
		slog.String("order_id", req.OrderID),
		slog.Bool("renewal", result.Renewal),
		slog.Bool("already_done", result.AlreadyDone))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"access_token": result.AccessToken,
		"token_type":   "bearer",
		"renewal":      result.Renewal,
		"plan_id":      result.PlanID,
		"user":         result.User,
	}))
}
