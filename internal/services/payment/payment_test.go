package payment_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/paymentprovider"
	"github.com/magabrotheeeer/flagship-content/internal/services/payment"
	"github.com/magabrotheeeer/flagship-content/internal/storage/repository"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) CreateOrder(ctx context.Context, order models.PendingSignupOrder) (int, error) {
	args := m.Called(ctx, order)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) GetOrderByProviderID(ctx context.Context, providerOrderID string) (*models.PendingSignupOrder, error) {
	args := m.Called(ctx, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingSignupOrder), args.Error(1)
}

func (m *MockRepository) ActivateSignupOrder(ctx context.Context, providerOrderID, paymentID string,
	user models.User, verifiedAt time.Time) (string, error) {
	args := m.Called(ctx, providerOrderID, paymentID, user, verifiedAt)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) RenewFromOrder(ctx context.Context, providerOrderID, paymentID, userUID, planID string,
	start, expiry time.Time) error {
	args := m.Called(ctx, providerOrderID, paymentID, userUID, planID, start, expiry)
	return args.Error(0)
}

func (m *MockRepository) ListOrdersByUser(ctx context.Context, userUID string, limit int) ([]*models.OrderInfo, error) {
	args := m.Called(ctx, userUID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrderInfo), args.Error(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateOrder(ctx context.Context, req paymentprovider.CreateOrderRequest) (*paymentprovider.CreateOrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.CreateOrderResponse), args.Error(1)
}

func (m *MockProvider) VerifySignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

func (m *MockProvider) KeyID() string {
	args := m.Called()
	return args.String(0)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateToken(userUID, email string, isAdmin bool) (string, error) {
	args := m.Called(userUID, email, isAdmin)
	return args.String(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func fakeHash(raw string) (string, error) {
	return "hashed:" + raw, nil
}

func newService(repo *MockRepository, provider *MockProvider, tokens *MockTokenIssuer, publisher *MockPublisher) *payment.Service {
	var prov payment.ProviderClient
	if provider != nil {
		prov = provider
	}
	var pub payment.Publisher
	if publisher != nil {
		pub = publisher
	}
	return payment.New(repo, prov, tokens, pub, fakeHash, newNoopLogger(), "admin@example.com", time.Hour)
}

func TestPlans(t *testing.T) {
	monthly, ok := payment.Plans["monthly"]
	require.True(t, ok)
	assert.Equal(t, int64(49900), monthly.Amount)
	assert.Equal(t, "INR", monthly.Currency)
	assert.Equal(t, 30, monthly.PeriodDays)

	yearly, ok := payment.Plans["yearly"]
	require.True(t, ok)
	assert.Equal(t, int64(499900), yearly.Amount)
	assert.Equal(t, "INR", yearly.Currency)
	assert.Equal(t, 365, yearly.PeriodDays)
}

func TestCreatePendingSignupOrder(t *testing.T) {
	req := payment.SignupOrderRequest{
		PlanID:   "monthly",
		Name:     "Test User",
		Email:    "new@example.com",
		Password: "secret123",
	}

	t.Run("success", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		service := newService(repo, provider, new(MockTokenIssuer), nil)

		repo.On("GetUserByEmail", mock.Anything, "new@example.com").
			Return(nil, repository.ErrNotFound).Once()
		provider.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r paymentprovider.CreateOrderRequest) bool {
			return r.Amount == 49900 && r.Currency == "INR"
		})).Return(&paymentprovider.CreateOrderResponse{ID: "order_123", Amount: 49900, Currency: "INR"}, nil).Once()
		provider.On("KeyID").Return("rzp_test_key")
		repo.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o models.PendingSignupOrder) bool {
			// пароль сохраняется только в хэшированном виде
			return o.PasswordHash == "hashed:secret123" &&
				o.ProviderOrderID == "order_123" &&
				o.Status == models.OrderStatusCreated &&
				o.ExpiresAt.After(time.Now())
		})).Return(1, nil).Once()

		checkout, err := service.CreatePendingSignupOrder(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "order_123", checkout.OrderID)
		assert.Equal(t, "rzp_test_key", checkout.KeyID)
		assert.Equal(t, int64(49900), checkout.Amount)
		repo.AssertExpectations(t)
		provider.AssertExpectations(t)
	})

	t.Run("email already registered", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		service := newService(repo, provider, new(MockTokenIssuer), nil)

		repo.On("GetUserByEmail", mock.Anything, "new@example.com").
			Return(&models.User{Email: "new@example.com"}, nil).Once()

		_, err := service.CreatePendingSignupOrder(context.Background(), req)
		assert.ErrorIs(t, err, payment.ErrEmailTaken)
		provider.AssertNotCalled(t, "CreateOrder")
	})

	t.Run("unknown plan", func(t *testing.T) {
		service := newService(new(MockRepository), new(MockProvider), new(MockTokenIssuer), nil)

		bad := req
		bad.PlanID = "weekly"
		_, err := service.CreatePendingSignupOrder(context.Background(), bad)
		assert.ErrorIs(t, err, payment.ErrInvalidPlan)
	})

	t.Run("provider not configured", func(t *testing.T) {
		service := newService(new(MockRepository), nil, new(MockTokenIssuer), nil)

		_, err := service.CreatePendingSignupOrder(context.Background(), req)
		assert.ErrorIs(t, err, payment.ErrNotConfigured)
	})
}

func TestVerify_Signup(t *testing.T) {
	order := &models.PendingSignupOrder{
		ID:              1,
		Kind:            models.OrderKindSignup,
		ProviderOrderID: "order_123",
		PlanID:          "monthly",
		Amount:          49900,
		Currency:        "INR",
		Name:            "Test User",
		Email:           "new@example.com",
		PasswordHash:    "hashed:secret123",
		Status:          models.OrderStatusCreated,
		ExpiresAt:       time.Now().Add(time.Hour),
	}

	t.Run("signature mismatch is terminal", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		service := newService(repo, provider, new(MockTokenIssuer), nil)

		provider.On("VerifySignature", "order_123", "pay_1", "bad").Return(false).Once()

		_, err := service.Verify(context.Background(), "", "order_123", "pay_1", "bad")
		assert.ErrorIs(t, err, payment.ErrSignatureMismatch)
		repo.AssertNotCalled(t, "GetOrderByProviderID")
	})

	t.Run("activates account and issues token", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		tokens := new(MockTokenIssuer)
		publisher := new(MockPublisher)
		service := newService(repo, provider, tokens, publisher)

		provider.On("VerifySignature", "order_123", "pay_1", "sig").Return(true).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_123").Return(order, nil).Once()

		var activated models.User
		repo.On("ActivateSignupOrder", mock.Anything, "order_123", "pay_1", mock.AnythingOfType("models.User"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				activated = args.Get(3).(models.User)
			}).Return("uid-1", nil).Once()
		tokens.On("GenerateToken", "uid-1", "new@example.com", false).Return("jwt-token", nil).Once()
		publisher.On("Publish", "purchase", mock.AnythingOfType("models.PurchaseNotification")).Return(nil).Once()

		result, err := service.Verify(context.Background(), "", "order_123", "pay_1", "sig")
		require.NoError(t, err)
		assert.Equal(t, "jwt-token", result.AccessToken)
		assert.False(t, result.Renewal)
		assert.False(t, result.AlreadyDone)
		assert.Equal(t, "monthly", result.PlanID)

		assert.True(t, activated.IsSubscribed)
		assert.False(t, activated.IsAdmin)
		assert.Equal(t, "hashed:secret123", activated.PasswordHash)
		require.NotNil(t, activated.SubscriptionExpiry)
		assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *activated.SubscriptionExpiry, time.Minute)
		repo.AssertExpectations(t)
	})

	t.Run("admin email grants admin flag", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		tokens := new(MockTokenIssuer)
		service := newService(repo, provider, tokens, nil)

		adminOrder := *order
		adminOrder.Email = "Admin@Example.com"

		provider.On("VerifySignature", "order_123", "pay_1", "sig").Return(true).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_123").Return(&adminOrder, nil).Once()
		repo.On("ActivateSignupOrder", mock.Anything, "order_123", "pay_1", mock.MatchedBy(func(u models.User) bool {
			return u.IsAdmin
		}), mock.AnythingOfType("time.Time")).Return("uid-adm", nil).Once()
		tokens.On("GenerateToken", "uid-adm", "Admin@Example.com", true).Return("jwt", nil).Once()

		result, err := service.Verify(context.Background(), "", "order_123", "pay_1", "sig")
		require.NoError(t, err)
		assert.True(t, result.User.IsAdmin)
	})

	t.Run("repeat verification is idempotent", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		tokens := new(MockTokenIssuer)
		service := newService(repo, provider, tokens, nil)

		uid := "uid-1"
		done := *order
		done.Status = models.OrderStatusVerified
		done.UserUID = &uid

		provider.On("VerifySignature", "order_123", "pay_1", "sig").Return(true).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_123").Return(&done, nil).Once()
		repo.On("GetUser", mock.Anything, "uid-1").
			Return(&models.User{UID: "uid-1", Email: "new@example.com", IsSubscribed: true}, nil).Once()
		tokens.On("GenerateToken", "uid-1", "new@example.com", false).Return("jwt-again", nil).Once()

		result, err := service.Verify(context.Background(), "", "order_123", "pay_1", "sig")
		require.NoError(t, err)
		assert.True(t, result.AlreadyDone)
		assert.Equal(t, "jwt-again", result.AccessToken)
		repo.AssertNotCalled(t, "ActivateSignupOrder")
	})

	t.Run("concurrent loser falls back to verified result", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		tokens := new(MockTokenIssuer)
		service := newService(repo, provider, tokens, nil)

		uid := "uid-1"
		consumed := *order
		consumed.Status = models.OrderStatusVerified
		consumed.UserUID = &uid

		provider.On("VerifySignature", "order_123", "pay_1", "sig").Return(true).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_123").Return(order, nil).Once()
		repo.On("ActivateSignupOrder", mock.Anything, "order_123", "pay_1", mock.AnythingOfType("models.User"), mock.AnythingOfType("time.Time")).
			Return("", repository.ErrOrderConsumed).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_123").Return(&consumed, nil).Once()
		repo.On("GetUser", mock.Anything, "uid-1").
			Return(&models.User{UID: "uid-1", Email: "new@example.com"}, nil).Once()
		tokens.On("GenerateToken", "uid-1", "new@example.com", false).Return("jwt", nil).Once()

		result, err := service.Verify(context.Background(), "", "order_123", "pay_1", "sig")
		require.NoError(t, err)
		assert.True(t, result.AlreadyDone)
	})

	t.Run("unknown order", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		service := newService(repo, provider, new(MockTokenIssuer), nil)

		provider.On("VerifySignature", "order_404", "pay_1", "sig").Return(true).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_404").Return(nil, repository.ErrNotFound).Once()

		_, err := service.Verify(context.Background(), "", "order_404", "pay_1", "sig")
		assert.ErrorIs(t, err, payment.ErrUnknownOrder)
	})
}

func TestVerify_Renewal(t *testing.T) {
	uid := "uid-7"
	renewal := &models.PendingSignupOrder{
		ID:              2,
		Kind:            models.OrderKindRenewal,
		ProviderOrderID: "order_777",
		PlanID:          "yearly",
		Amount:          499900,
		Currency:        "INR",
		Name:            "Existing User",
		Email:           "old@example.com",
		UserUID:         &uid,
		Status:          models.OrderStatusCreated,
		ExpiresAt:       time.Now().Add(time.Hour),
	}

	t.Run("renews subscription without new token", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		tokens := new(MockTokenIssuer)
		service := newService(repo, provider, tokens, nil)

		provider.On("VerifySignature", "order_777", "pay_7", "sig").Return(true).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_777").Return(renewal, nil).Once()
		repo.On("RenewFromOrder", mock.Anything, "order_777", "pay_7", "uid-7", "yearly",
			mock.AnythingOfType("time.Time"), mock.MatchedBy(func(expiry time.Time) bool {
				return time.Until(expiry) > 364*24*time.Hour
			})).Return(nil).Once()
		repo.On("GetUser", mock.Anything, "uid-7").
			Return(&models.User{UID: "uid-7", Email: "old@example.com", IsSubscribed: true}, nil).Once()

		result, err := service.Verify(context.Background(), "uid-7", "order_777", "pay_7", "sig")
		require.NoError(t, err)
		assert.True(t, result.Renewal)
		assert.Empty(t, result.AccessToken)
		tokens.AssertNotCalled(t, "GenerateToken")
	})

	t.Run("wrong user cannot consume renewal order", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		service := newService(repo, provider, new(MockTokenIssuer), nil)

		provider.On("VerifySignature", "order_777", "pay_7", "sig").Return(true).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_777").Return(renewal, nil).Once()

		_, err := service.Verify(context.Background(), "uid-other", "order_777", "pay_7", "sig")
		assert.ErrorIs(t, err, payment.ErrOrderOwnership)
		repo.AssertNotCalled(t, "RenewFromOrder")
	})

	t.Run("replay of consumed order without auth is rejected", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		tokens := new(MockTokenIssuer)
		service := newService(repo, provider, tokens, nil)

		consumed := *renewal
		consumed.Status = models.OrderStatusVerified

		provider.On("VerifySignature", "order_777", "pay_7", "sig").Return(true).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_777").Return(&consumed, nil).Once()

		_, err := service.Verify(context.Background(), "", "order_777", "pay_7", "sig")
		assert.ErrorIs(t, err, payment.ErrOrderOwnership)
		tokens.AssertNotCalled(t, "GenerateToken")
	})

	t.Run("replay by owner confirms without token", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		tokens := new(MockTokenIssuer)
		service := newService(repo, provider, tokens, nil)

		consumed := *renewal
		consumed.Status = models.OrderStatusVerified

		provider.On("VerifySignature", "order_777", "pay_7", "sig").Return(true).Once()
		repo.On("GetOrderByProviderID", mock.Anything, "order_777").Return(&consumed, nil).Once()
		repo.On("GetUser", mock.Anything, "uid-7").
			Return(&models.User{UID: "uid-7", Email: "old@example.com", IsSubscribed: true}, nil).Once()

		result, err := service.Verify(context.Background(), "uid-7", "order_777", "pay_7", "sig")
		require.NoError(t, err)
		assert.True(t, result.AlreadyDone)
		assert.True(t, result.Renewal)
		assert.Empty(t, result.AccessToken)
		tokens.AssertNotCalled(t, "GenerateToken")
	})
}
