// Package flagshipcontent предоставляет маршруты для основного приложения.
package flagshipcontent

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/contact"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/health"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/passwordreset/confirm"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/passwordreset/request"
	resetvalidate "github.com/magabrotheeeer/flagship-content/internal/http/handlers/passwordreset/validate"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/payment/ordercreate"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/payment/orderlist"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/payment/orderrenew"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/payment/paymentconfig"
	"github.com/magabrotheeeer/flagship-content/internal/http/handlers/payment/paymentverify"
	postcreate "github.com/magabrotheeeer/flagship-content/internal/http/handlers/post/create"
	postlist "github.com/magabrotheeeer/flagship-content/internal/http/handlers/post/list"
	postread "github.com/magabrotheeeer/flagship-content/internal/http/handlers/post/read"
	postremove "github.com/magabrotheeeer/flagship-content/internal/http/handlers/post/remove"
	postupdate "github.com/magabrotheeeer/flagship-content/internal/http/handlers/post/update"
	"github.com/magabrotheeeer/flagship-content/internal/http/middlewarectx"
	librabbitmq "github.com/magabrotheeeer/flagship-content/internal/lib/rabbitmq"
	authservice "github.com/magabrotheeeer/flagship-content/internal/services/auth"
	passwordresetservice "github.com/magabrotheeeer/flagship-content/internal/services/passwordreset"
	paymentservice "github.com/magabrotheeeer/flagship-content/internal/services/payment"
	postservice "github.com/magabrotheeeer/flagship-content/internal/services/post"
	"github.com/magabrotheeeer/flagship-content/internal/storage/repository"
)

// Services объединяет сервисы, нужные маршрутам основного приложения.
type Services struct {
	Auth          *authservice.Service
	Payment       *paymentservice.Service
	Post          *postservice.Service
	PasswordReset *passwordresetservice.Service
	Publisher     *librabbitmq.ChannelPublisher // nil, если брокер недоступен
	Storage       *repository.Storage
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	var contactPub contact.Publisher
	if s.Publisher != nil {
		contactPub = s.Publisher
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.New(logger, s.Storage).ServeHTTP)

		// Открытые конечные точки
		r.Post("/auth/signup", signup.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
		r.Post("/contact", contact.New(logger, contactPub).ServeHTTP)

		r.Post("/password-reset/request", request.New(logger, s.PasswordReset).ServeHTTP)
		r.Get("/password-reset/validate/{token}", resetvalidate.New(logger, s.PasswordReset).ServeHTTP)
		r.Post("/password-reset/confirm", confirm.New(logger, s.PasswordReset).ServeHTTP)

		r.Get("/payments/config", paymentconfig.New(logger, s.Payment).ServeHTTP)
		r.Post("/payments/create-pending-signup-order", ordercreate.New(logger, s.Payment).ServeHTTP)

		// Статьи и подтверждение оплаты: токен необязателен, но учитывается
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.OptionalAuthMiddleware(s.Auth, logger))
			r.Get("/posts", postlist.New(logger, s.Post, s.Auth).ServeHTTP)
			r.Get("/posts/{idOrSlug}", postread.New(logger, s.Post, s.Auth).ServeHTTP)
			r.Post("/payments/verify", paymentverify.New(logger, s.Payment).ServeHTTP)
		})

		// Группа с обязательной JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/auth/me", me.New(logger, s.Auth).ServeHTTP)
			r.Post("/payments/create-order", orderrenew.New(logger, s.Payment).ServeHTTP)
			r.Get("/payments/orders", orderlist.New(logger, s.Payment).ServeHTTP)

			// Управление статьями доступно только администраторам
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnlyMiddleware(logger))
				r.Post("/posts", postcreate.New(logger, s.Post).ServeHTTP)
				r.Put("/posts/{id}", postupdate.New(logger, s.Post).ServeHTTP)
				r.Delete("/posts/{id}", postremove.New(logger, s.Post).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
