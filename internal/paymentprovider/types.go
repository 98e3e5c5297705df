package paymentprovider

// CreateOrderRequest представляет запрос на создание заказа у Razorpay.
type CreateOrderRequest struct {
	Amount         int64             `json:"amount"`   // сумма в минорных единицах (пайсах)
	Currency       string            `json:"currency"` // валюта, например "INR"
	Receipt        string            `json:"receipt"`  // внутренний идентификатор заказа
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"` // дополнительная инфа: plan_id, email
}

// CreateOrderResponse представляет ответ Razorpay на создание заказа.
type CreateOrderResponse struct {
	ID       string `json:"id"`       // ID заказа у провайдера, например "order_EKwxwAgItmmXdp"
	Amount   int64  `json:"amount"`   // сумма
	Currency string `json:"currency"` // валюта
	Receipt  string `json:"receipt"`
	Status   string `json:"status"` // статус заказа, например "created"
}
