// Package auth содержит логику бизнес-уровня для работы с пользователями
// и аутентификацией: регистрацию без оплаты, вход и валидацию токенов.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/flagship-content/internal/lib/jwt"
	"github.com/magabrotheeeer/flagship-content/internal/lib/password"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/storage/repository"
)

// Ошибки аутентификации, видимые клиенту.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его UID.
	CreateUser(ctx context.Context, user models.User) (string, error)

	// GetUserByEmail возвращает пользователя по email или ошибку, если не найден.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users      UserRepository
	jwtMaker   jwt.Maker
	adminEmail string
}

// New создает новый экземпляр Service. Пользователь с adminEmail получает
// права администратора при регистрации.
func New(users UserRepository, jwtMaker jwt.Maker, adminEmail string) *Service {
	return &Service{
		users:      users,
		jwtMaker:   jwtMaker,
		adminEmail: adminEmail,
	}
}

// AuthResult токен сессии вместе с публичным представлением пользователя.
type AuthResult struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	User        models.PublicUser `json:"user"`
}

// Register создает нового пользователя без подписки и сразу выдает токен сессии.
func (s *Service) Register(ctx context.Context, email, name, rawPassword string) (*AuthResult, error) {
	const op = "auth.Register"

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		IsAdmin:      strings.EqualFold(email, s.adminEmail),
	}
	uid, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.UID = uid

	token, err := s.jwtMaker.GenerateToken(user.UID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AuthResult{AccessToken: token, TokenType: "bearer", User: user.Public()}, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
//
// Неизвестный email и неверный пароль дают одну и ту же ошибку, чтобы не
// раскрывать существование учётной записи.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*AuthResult, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(user.UID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AuthResult{AccessToken: token, TokenType: "bearer", User: user.Public()}, nil
}

// ValidateToken проверяет JWT и возвращает claims, если токен корректен.
func (s *Service) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}

// GetUser возвращает пользователя по UID.
func (s *Service) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	return s.users.GetUser(ctx, userUID)
}
