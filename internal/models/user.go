// Package models содержит доменную модель пользователя системы,
// включающую данные учётной записи, хэш пароля, признаки админа и подписки.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID                string     // Уникальный идентификатор пользователя
	Email              string     // Электронная почта (уникальная)
	Name               string     // Отображаемое имя
	PasswordHash       string     // Хэш пароля пользователя
	Mobile             *string    // Телефон, опционально
	IsAdmin            bool       // Признак администратора
	IsSubscribed       bool       // Признак оплаченной подписки
	SubscriptionPlan   *string    // Тарифный план, monthly или yearly
	SubscriptionStart  *time.Time // Дата начала оплаченной подписки
	SubscriptionExpiry *time.Time // Дата истечения оплаченной подписки
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PublicUser представляет пользователя в HTTP-ответах, без хэша пароля.
type PublicUser struct {
	UID              string  `json:"id"`
	Email            string  `json:"email"`
	Name             string  `json:"name"`
	IsAdmin          bool    `json:"is_admin"`
	IsSubscribed     bool    `json:"is_subscribed"`
	SubscriptionPlan *string `json:"subscription_type,omitempty"`
}

// Public конвертирует User в PublicUser, отбрасывая хэш пароля и служебные поля.
func (u *User) Public() PublicUser {
	return PublicUser{
		UID:              u.UID,
		Email:            u.Email,
		Name:             u.Name,
		IsAdmin:          u.IsAdmin,
		IsSubscribed:     u.IsSubscribed,
		SubscriptionPlan: u.SubscriptionPlan,
	}
}
