// Package sender собирает приложение отправки уведомлений: подключение
// к брокеру, SMTP-транспорт и потребителей очередей.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/flagship-content/internal/config"
	"github.com/magabrotheeeer/flagship-content/internal/lib/smtp"
	"github.com/magabrotheeeer/flagship-content/internal/rabbitmq"
	senderservice "github.com/magabrotheeeer/flagship-content/internal/services/sender"
)

// App инкапсулирует подключения приложения отправки уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New инициализирует зависимости приложения отправки уведомлений.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	newTransport := smtp.NewTransport(cfg, logger)
	senderService := senderservice.New(logger, newTransport, cfg.ContactEmail)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run запускает потребителей всех очередей уведомлений и блокируется
// до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	consumers := map[string]func([]byte) error{
		rabbitmq.QueuePurchase: a.senderService.SendPurchaseConfirmation,
		rabbitmq.QueueExpiry:   a.senderService.SendExpiryNotice,
		rabbitmq.QueueReset:    a.senderService.SendPasswordReset,
		rabbitmq.QueueContact:  a.senderService.SendContactMessage,
	}
	for queue, handler := range consumers {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, queue, handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", queue), slog.Any("err", err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
