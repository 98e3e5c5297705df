package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/flagship-content/internal/lib/jwt"
	"github.com/magabrotheeeer/flagship-content/internal/lib/password"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/services/auth"
	"github.com/magabrotheeeer/flagship-content/internal/storage/repository"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newService(users *MockUserRepository) *auth.Service {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	return auth.New(users, maker, "admin@example.com")
}

func TestRegister(t *testing.T) {
	t.Run("creates user and issues token", func(t *testing.T) {
		users := new(MockUserRepository)
		service := newService(users)

		users.On("GetUserByEmail", mock.Anything, "new@example.com").
			Return(nil, repository.ErrNotFound).Once()
		users.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Email == "new@example.com" && !u.IsAdmin &&
				password.CompareHash(u.PasswordHash, "secret123") == nil
		})).Return("uid-1", nil).Once()

		result, err := service.Register(context.Background(), "new@example.com", "New User", "secret123")
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, "bearer", result.TokenType)
		assert.Equal(t, "uid-1", result.User.UID)
		assert.False(t, result.User.IsSubscribed)
	})

	t.Run("admin email gets admin flag", func(t *testing.T) {
		users := new(MockUserRepository)
		service := newService(users)

		users.On("GetUserByEmail", mock.Anything, "ADMIN@example.com").
			Return(nil, repository.ErrNotFound).Once()
		users.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.IsAdmin
		})).Return("uid-adm", nil).Once()

		result, err := service.Register(context.Background(), "ADMIN@example.com", "Admin", "secret123")
		require.NoError(t, err)
		assert.True(t, result.User.IsAdmin)
	})

	t.Run("email taken", func(t *testing.T) {
		users := new(MockUserRepository)
		service := newService(users)

		users.On("GetUserByEmail", mock.Anything, "old@example.com").
			Return(&models.User{Email: "old@example.com"}, nil).Once()

		_, err := service.Register(context.Background(), "old@example.com", "Old", "secret123")
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
		users.AssertNotCalled(t, "CreateUser")
	})
}

func TestLogin(t *testing.T) {
	hash, err := password.GetHash("secret123")
	require.NoError(t, err)
	stored := &models.User{UID: "uid-1", Email: "user@example.com", PasswordHash: hash}

	t.Run("success", func(t *testing.T) {
		users := new(MockUserRepository)
		service := newService(users)
		users.On("GetUserByEmail", mock.Anything, "user@example.com").Return(stored, nil).Once()

		result, err := service.Login(context.Background(), "user@example.com", "secret123")
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, "uid-1", result.User.UID)
	})

	t.Run("wrong password", func(t *testing.T) {
		users := new(MockUserRepository)
		service := newService(users)
		users.On("GetUserByEmail", mock.Anything, "user@example.com").Return(stored, nil).Once()

		_, err := service.Login(context.Background(), "user@example.com", "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email gives the same error", func(t *testing.T) {
		users := new(MockUserRepository)
		service := newService(users)
		users.On("GetUserByEmail", mock.Anything, "nobody@example.com").
			Return(nil, repository.ErrNotFound).Once()

		_, err := service.Login(context.Background(), "nobody@example.com", "secret123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestValidateToken(t *testing.T) {
	users := new(MockUserRepository)
	service := newService(users)

	hash, err := password.GetHash("secret123")
	require.NoError(t, err)
	users.On("GetUserByEmail", mock.Anything, "user@example.com").
		Return(&models.User{UID: "uid-1", Email: "user@example.com", PasswordHash: hash}, nil).Once()

	result, err := service.Login(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)

	claims, err := service.ValidateToken(context.Background(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UserUID)

	_, err = service.ValidateToken(context.Background(), "garbage")
	assert.Error(t, err)
}
