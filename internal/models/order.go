package models

import "time"

// Статусы заказа на оформление подписки.
const (
	OrderStatusCreated  = "created"
	OrderStatusVerified = "verified"
	OrderStatusExpired  = "expired"
	OrderStatusFailed   = "failed"
)

// Типы заказов: регистрация нового пользователя или продление подписки
// существующего. Тип фиксируется при создании заказа и определяет,
// требуется ли аутентификация при подтверждении платежа.
const (
	OrderKindSignup  = "signup"
	OrderKindRenewal = "renewal"
)

// PendingSignupOrder представляет неподтверждённый заказ на оформление подписки:
// связку данных будущей учётной записи и заказа у платёжного провайдера.
// Поле PasswordHash хранит bcrypt-хэш, исходный пароль никогда не сохраняется.
// Запись потребляется ровно один раз при успешной проверке платежа; поле
// ExpiresAt ограничивает время жизни учётных данных в неподтверждённом заказе.
type PendingSignupOrder struct {
	ID                int     // Внутренний идентификатор записи
	Kind              string  // signup или renewal
	ProviderOrderID   string  // Идентификатор заказа у платёжного провайдера
	ProviderPaymentID *string // Идентификатор платежа, заполняется при проверке
	PlanID            string  // Тарифный план, monthly или yearly
	Amount            int64   // Сумма в минорных единицах (пайсах)
	Currency          string  // Валюта заказа
	Name              string  // Имя будущего пользователя
	Email             string  // Электронная почта будущего пользователя
	PasswordHash      string  // Хэш пароля, пустой для заказов на продление
	Mobile            *string // Телефон, опционально
	UserUID           *string // UID пользователя: для продления сразу, для регистрации после активации
	Status            string  // created, verified, expired или failed
	CreatedAt         time.Time
	ExpiresAt         time.Time  // Момент, после которого заказ недействителен
	VerifiedAt        *time.Time // Момент успешной проверки платежа
}

// OrderInfo представляет заказ в списке заказов пользователя, без учётных данных.
type OrderInfo struct {
	ProviderOrderID string    `json:"order_id"`
	PlanID          string    `json:"plan_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}
