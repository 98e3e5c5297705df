package models

// PurchaseNotification сообщение о покупке подписки для очереди уведомлений.
type PurchaseNotification struct {
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Mobile *string `json:"mobile,omitempty"`
	PlanID string  `json:"plan_id"`
	Amount int64   `json:"amount"` // в минорных единицах
}

// ExpiryNotification сообщение об окончании подписки.
type ExpiryNotification struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	PlanID string `json:"plan_id"`
}

// PasswordResetNotification сообщение со ссылкой для сброса пароля.
type PasswordResetNotification struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Link  string `json:"link"`
}

// ContactMessage сообщение из формы обратной связи на сайте.
type ContactMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	WhatsApp string `json:"whatsapp,omitempty"`
	Message  string `json:"message"`
}
