// Package passwordreset содержит бизнес-логику восстановления пароля:
// выпуск одноразовых токенов, их проверку и установку нового пароля.
package passwordreset

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/rabbitmq"
	"github.com/magabrotheeeer/flagship-content/internal/storage/repository"
)

// ErrInvalidToken возвращается на неизвестный или истёкший токен сброса.
var ErrInvalidToken = errors.New("invalid or expired reset token")

// tokenTTL время жизни токена сброса пароля.
const tokenTTL = time.Hour

// UserRepository определяет методы для работы с пользователями.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, uid, passwordHash string) error
}

// TokenStore описывает хранилище одноразовых токенов с TTL.
type TokenStore interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Publisher публикует уведомления в брокер сообщений.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service реализует бизнес-логику восстановления пароля.
type Service struct {
	users       UserRepository
	tokens      TokenStore
	publisher   Publisher
	hash        func(string) (string, error)
	log         *slog.Logger
	frontendURL string
}

// New создает новый экземпляр Service.
func New(users UserRepository, tokens TokenStore, publisher Publisher,
	hash func(string) (string, error), log *slog.Logger, frontendURL string) *Service {
	return &Service{
		users:       users,
		tokens:      tokens,
		publisher:   publisher,
		hash:        hash,
		log:         log,
		frontendURL: frontendURL,
	}
}

// tokenKey формирует ключ хранилища для токена сброса.
func tokenKey(token string) string {
	return "password_reset:" + token
}

// newToken генерирует криптостойкий URL-безопасный токен.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Request выпускает токен сброса для указанного email и публикует уведомление
// со ссылкой восстановления. Для неизвестного email метод молча завершается
// успехом, чтобы не раскрывать существование аккаунта.
func (s *Service) Request(ctx context.Context, email string) error {
	const op = "services.passwordreset.Request"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := newToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.tokens.Set(tokenKey(token), user.UID, tokenTTL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.publisher != nil {
		msg := models.PasswordResetNotification{
			Email: user.Email,
			Name:  user.Name,
			Link:  s.frontendURL + "/reset-password?token=" + token,
		}
		if err := s.publisher.Publish(rabbitmq.RoutingKeyReset, msg); err != nil {
			s.log.Error("failed to publish password reset notification", sl.Err(err))
		}
	}

	s.log.Info("issued password reset token", slog.String("uid", user.UID))
	return nil
}

// Validate проверяет, что токен существует и ещё не истёк.
func (s *Service) Validate(_ context.Context, token string) error {
	var uid string
	found, err := s.tokens.Get(tokenKey(token), &uid)
	if err != nil {
		return fmt.Errorf("services.passwordreset.Validate: %w", err)
	}
	if !found {
		return ErrInvalidToken
	}
	return nil
}

// Confirm устанавливает новый пароль по токену сброса и гасит токен.
func (s *Service) Confirm(ctx context.Context, token, newPassword string) error {
	const op = "services.passwordreset.Confirm"

	var uid string
	found, err := s.tokens.Get(tokenKey(token), &uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return ErrInvalidToken
	}

	passwordHash, err := s.hash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, uid, passwordHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.tokens.Invalidate(tokenKey(token)); err != nil {
		s.log.Warn("failed to invalidate reset token", sl.Err(err))
	}

	s.log.Info("password reset completed", slog.String("uid", uid))
	return nil
}
