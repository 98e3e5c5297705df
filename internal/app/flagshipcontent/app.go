// Package flagshipcontent собирает основное приложение: хранилище, кеш,
// брокер уведомлений, платёжное ядро и HTTP-сервер с маршрутами.
package flagshipcontent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/flagship-content/internal/cache"
	"github.com/magabrotheeeer/flagship-content/internal/config"
	"github.com/magabrotheeeer/flagship-content/internal/lib/jwt"
	"github.com/magabrotheeeer/flagship-content/internal/lib/password"
	librabbitmq "github.com/magabrotheeeer/flagship-content/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/migrations"
	"github.com/magabrotheeeer/flagship-content/internal/paymentprovider"
	"github.com/magabrotheeeer/flagship-content/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/flagship-content/internal/services/auth"
	expiryservice "github.com/magabrotheeeer/flagship-content/internal/services/expiry"
	passwordresetservice "github.com/magabrotheeeer/flagship-content/internal/services/passwordreset"
	paymentservice "github.com/magabrotheeeer/flagship-content/internal/services/payment"
	postservice "github.com/magabrotheeeer/flagship-content/internal/services/post"
	"github.com/magabrotheeeer/flagship-content/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и подключения основного приложения.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *repository.Storage
	mqConn  *amqp.Connection
	mqCh    *amqp.Channel
	sweeper *expiryservice.Sweeper
}

// New инициализирует все зависимости основного приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	// Брокер уведомлений необязателен: без него уведомления просто не публикуются.
	var (
		mqConn    *amqp.Connection
		mqCh      *amqp.Channel
		publisher *librabbitmq.ChannelPublisher
	)
	if cfg.RabbitMQURL != "" {
		mqConn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			logger.Error("rabbitmq unavailable, notifications disabled", sl.Err(err))
		} else {
			mqCh, err = rabbitmq.SetupChannel(mqConn)
			if err != nil {
				mqConn.Close()
				return nil, err
			}
			publisher = librabbitmq.NewChannelPublisher(mqCh, rabbitmq.Exchange)
		}
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	var provider paymentservice.ProviderClient
	if cfg.RazorpayConfigured() {
		provider = paymentprovider.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	} else {
		logger.Warn("payment provider keys missing, checkout disabled")
	}

	var pub paymentservice.Publisher
	if publisher != nil {
		pub = publisher
	}

	authService := authservice.New(db, jwtMaker, cfg.AdminEmail)
	paymentService := paymentservice.New(db, provider, jwtMaker, pub,
		password.GetHash, logger, cfg.AdminEmail, cfg.PendingOrders.TTL)
	postService := postservice.New(db, cacheRedis, logger)

	var resetPub passwordresetservice.Publisher
	if publisher != nil {
		resetPub = publisher
	}
	resetService := passwordresetservice.New(db, cacheRedis, resetPub,
		password.GetHash, logger, cfg.FrontendURL)

	var expiryPub expiryservice.Publisher
	if publisher != nil {
		expiryPub = publisher
	}
	sweeper := expiryservice.New(db, expiryPub, logger, cfg.PendingOrders.SweepInterval)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Auth:          authService,
		Payment:       paymentService,
		Post:          postService,
		PasswordReset: resetService,
		Publisher:     publisher,
		Storage:       db,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		logger:  logger,
		db:      db,
		mqConn:  mqConn,
		mqCh:    mqCh,
		sweeper: sweeper,
	}, nil
}

// Run запускает HTTP-сервер и фоновый обход подписок, завершает работу
// по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	go a.sweeper.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.mqCh != nil {
			_ = a.mqCh.Close()
		}
		if a.mqConn != nil {
			_ = a.mqConn.Close()
		}
		a.db.DB.Close()
		return err
	}
}
