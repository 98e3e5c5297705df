// Package expiry содержит фоновую задачу обслуживания подписок:
// отключает истёкшие подписки и гасит просроченные незавершённые заказы.
package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/rabbitmq"
)

// Repository определяет методы хранилища, нужные сборщику.
type Repository interface {
	FindLapsedSubscribers(ctx context.Context, now time.Time) ([]*models.User, error)
	ClearSubscription(ctx context.Context, userUID string) error
	ExpireStaleOrders(ctx context.Context, now time.Time) (int, error)
}

// Publisher публикует уведомления в брокер сообщений.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Sweeper периодически отключает истёкшие подписки и просроченные заказы.
type Sweeper struct {
	repo      Repository
	publisher Publisher
	log       *slog.Logger
	interval  time.Duration
}

// New создает новый экземпляр Sweeper.
func New(repo Repository, publisher Publisher, log *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		repo:      repo,
		publisher: publisher,
		log:       log,
		interval:  interval,
	}
}

// Run запускает периодический обход до отмены контекста. Первый проход
// выполняется сразу при старте.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep выполняет один проход: снимает истёкшие подписки с уведомлением
// пользователя и помечает просроченные незавершённые заказы.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	users, err := s.repo.FindLapsedSubscribers(ctx, now)
	if err != nil {
		s.log.Error("failed to find lapsed subscribers", sl.Err(err))
	} else {
		for _, user := range users {
			if err := s.repo.ClearSubscription(ctx, user.UID); err != nil {
				s.log.Error("failed to clear subscription",
					slog.String("uid", user.UID), sl.Err(err))
				continue
			}
			s.log.Info("subscription expired", slog.String("uid", user.UID))
			s.notifyExpiry(user)
		}
	}

	count, err := s.repo.ExpireStaleOrders(ctx, now)
	if err != nil {
		s.log.Error("failed to expire stale orders", sl.Err(err))
	} else if count > 0 {
		s.log.Info("expired stale pending orders", slog.Int("count", count))
	}
}

func (s *Sweeper) notifyExpiry(user *models.User) {
	if s.publisher == nil {
		return
	}
	plan := ""
	if user.SubscriptionPlan != nil {
		plan = *user.SubscriptionPlan
	}
	msg := models.ExpiryNotification{
		Email:  user.Email,
		Name:   user.Name,
		PlanID: plan,
	}
	if err := s.publisher.Publish(rabbitmq.RoutingKeyExpiry, msg); err != nil {
		s.log.Error("failed to publish expiry notification", sl.Err(err))
	}
}
