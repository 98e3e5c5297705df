package payment

// Plan описывает тарифный план подписки с фиксированной ценой и периодом.
type Plan struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Amount     int64  `json:"amount"`   // цена в минорных единицах (пайсах)
	Currency   string `json:"currency"` // валюта плана
	PeriodDays int    `json:"period_days"`
}

// Plans таблица тарифных планов. Цены фиксированы в пайсах:
// 49900 = 499.00 INR, 499900 = 4999.00 INR.
var Plans = map[string]Plan{
	"monthly": {
		ID:         "monthly",
		Name:       "Monthly Subscription",
		Amount:     49900,
		Currency:   "INR",
		PeriodDays: 30,
	},
	"yearly": {
		ID:         "yearly",
		Name:       "Yearly Subscription",
		Amount:     499900,
		Currency:   "INR",
		PeriodDays: 365,
	},
}
