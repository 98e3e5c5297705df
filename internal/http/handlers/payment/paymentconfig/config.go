// Package paymentconfig отдаёт фронтенду публичную конфигурацию платежей:
// признак доступности платёжной системы и публикуемый ключ провайдера.
package paymentconfig

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flagship-content/internal/http/response"
	"github.com/magabrotheeeer/flagship-content/internal/services/payment"
)

// Service описывает интерфейс платёжного ядра для этого обработчика.
type Service interface {
	Configured() bool
	KeyID() string
}

// Handler обрабатывает запросы конфигурации платежей.
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

// planInfo публичное описание тарифа для страницы оформления.
type planInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	PeriodDays int    `json:"period_days"`
}

// ServeHTTP godoc
// @Summary Конфигурация платежей
// @Description Возвращает признак доступности платёжной системы, публичный ключ и тарифы.
// @Tags Payments
// @Produce  json
// @Success 200 {object} response.Response "Конфигурация платежей"
// @Router /payments/config [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	plans := make([]planInfo, 0, len(payment.Plans))
	for _, p := range payment.Plans {
		plans = append(plans, planInfo{
			ID:         p.ID,
			Name:       p.Name,
			Amount:     p.Amount,
			Currency:   p.Currency,
			PeriodDays: p.PeriodDays,
		})
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"configured": h.service.Configured(),
		"key_id":     h.service.KeyID(),
		"plans":      plans,
	}))
}
