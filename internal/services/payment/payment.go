// Package payment содержит бизнес-логику платёжного ядра: создание
// незавершённых заказов на оформление подписки, проверку результата оплаты
// и активацию учётной записи с подпиской.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/paymentprovider"
	"github.com/magabrotheeeer/flagship-content/internal/rabbitmq"
	"github.com/magabrotheeeer/flagship-content/internal/storage/repository"
)

// Ошибки платёжного ядра, видимые клиенту.
var (
	ErrInvalidPlan       = errors.New("invalid plan selected")
	ErrEmailTaken        = errors.New("email already registered")
	ErrNotConfigured     = errors.New("payment system not configured")
	ErrProviderOrder     = errors.New("failed to create order with payment provider")
	ErrSignatureMismatch = errors.New("invalid payment signature")
	ErrUnknownOrder      = errors.New("order not found or already completed")
	ErrOrderOwnership    = errors.New("order does not belong to user")
)

// Repository описывает методы хранилища, используемые платёжным ядром.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	CreateOrder(ctx context.Context, order models.PendingSignupOrder) (int, error)
	GetOrderByProviderID(ctx context.Context, providerOrderID string) (*models.PendingSignupOrder, error)
	ActivateSignupOrder(ctx context.Context, providerOrderID, paymentID string,
		user models.User, verifiedAt time.Time) (string, error)
	RenewFromOrder(ctx context.Context, providerOrderID, paymentID, userUID, planID string,
		start, expiry time.Time) error
	ListOrdersByUser(ctx context.Context, userUID string, limit int) ([]*models.OrderInfo, error)
}

// ProviderClient описывает интерфейс клиента платёжного провайдера.
type ProviderClient interface {
	CreateOrder(ctx context.Context, req paymentprovider.CreateOrderRequest) (*paymentprovider.CreateOrderResponse, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// TokenIssuer выпускает токены сессии для активированных пользователей.
type TokenIssuer interface {
	GenerateToken(userUID, email string, isAdmin bool) (string, error)
}

// Hasher хэширует пароль до сохранения в незавершённом заказе.
type Hasher func(raw string) (string, error)

// Publisher публикует уведомления в очередь.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service реализует платёжное ядро.
type Service struct {
	repo       Repository
	provider   ProviderClient // nil, если платёжная система не настроена
	tokens     TokenIssuer
	publisher  Publisher // nil, если брокер уведомлений недоступен
	hash       Hasher
	log        *slog.Logger
	adminEmail string
	orderTTL   time.Duration
}

// New создаёт новый экземпляр Service. provider может быть nil — тогда все
// платёжные операции завершаются ErrNotConfigured до обращения к провайдеру.
func New(repo Repository, provider ProviderClient, tokens TokenIssuer, publisher Publisher,
	hash Hasher, log *slog.Logger, adminEmail string, orderTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		provider:   provider,
		tokens:     tokens,
		publisher:  publisher,
		hash:       hash,
		log:        log,
		adminEmail: adminEmail,
		orderTTL:   orderTTL,
	}
}

// Configured сообщает, настроен ли платёжный провайдер.
func (s *Service) Configured() bool {
	return s.provider != nil
}

// KeyID возвращает публикуемый ключ провайдера для фронтенда.
func (s *Service) KeyID() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.KeyID()
}

// CheckoutInfo данные для передачи во внешний checkout.
type CheckoutInfo struct {
	OrderID  string `json:"order_id"`
	KeyID    string `json:"key_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	PlanName string `json:"plan_name"`
}

// SignupOrderRequest данные заявки на оформление подписки новым пользователем.
type SignupOrderRequest struct {
	PlanID   string
	Name     string
	Email    string
	Password string
	Mobile   *string
}

// CreatePendingSignupOrder создаёт заказ у провайдера и незавершённый заказ
// на регистрацию. Пароль хэшируется до любых внешних вызовов; при ошибке
// провайдера в хранилище ничего не сохраняется.
func (s *Service) CreatePendingSignupOrder(ctx context.Context, req SignupOrderRequest) (*CheckoutInfo, error) {
	const op = "payment.CreatePendingSignupOrder"
	if s.provider == nil {
		return nil, ErrNotConfigured
	}

	plan, ok := Plans[req.PlanID]
	if !ok {
		return nil, ErrInvalidPlan
	}

	if _, err := s.repo.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := s.hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	receipt := "pending_signup_" + uuid.New().String()
	providerOrder, err := s.provider.CreateOrder(ctx, paymentprovider.CreateOrderRequest{
		Amount:         plan.Amount,
		Currency:       plan.Currency,
		Receipt:        receipt,
		PaymentCapture: 1,
		Notes: map[string]string{
			"plan_id": plan.ID,
			"email":   req.Email,
		},
	})
	if err != nil {
		s.log.Error("provider order creation failed", sl.Err(err))
		return nil, ErrProviderOrder
	}

	now := time.Now().UTC()
	order := models.PendingSignupOrder{
		Kind:            models.OrderKindSignup,
		ProviderOrderID: providerOrder.ID,
		PlanID:          plan.ID,
		Amount:          plan.Amount,
		Currency:        plan.Currency,
		Name:            req.Name,
		Email:           req.Email,
		PasswordHash:    passwordHash,
		Mobile:          req.Mobile,
		Status:          models.OrderStatusCreated,
		ExpiresAt:       now.Add(s.orderTTL),
	}
	if _, err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("created pending signup order",
		slog.String("provider_order_id", providerOrder.ID),
		slog.String("plan_id", plan.ID))

	return &CheckoutInfo{
		OrderID:  providerOrder.ID,
		KeyID:    s.provider.KeyID(),
		Amount:   plan.Amount,
		Currency: plan.Currency,
		PlanName: plan.Name,
	}, nil
}

// CreateRenewalOrder создаёт заказ на продление подписки уже существующего
// пользователя. Учётные данные в таком заказе не хранятся.
func (s *Service) CreateRenewalOrder(ctx context.Context, userUID, planID string) (*CheckoutInfo, error) {
	const op = "payment.CreateRenewalOrder"
	if s.provider == nil {
		return nil, ErrNotConfigured
	}

	plan, ok := Plans[planID]
	if !ok {
		return nil, ErrInvalidPlan
	}

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	receipt := "renewal_" + uuid.New().String()
	providerOrder, err := s.provider.CreateOrder(ctx, paymentprovider.CreateOrderRequest{
		Amount:         plan.Amount,
		Currency:       plan.Currency,
		Receipt:        receipt,
		PaymentCapture: 1,
		Notes: map[string]string{
			"plan_id":  plan.ID,
			"email":    user.Email,
			"user_uid": user.UID,
		},
	})
	if err != nil {
		s.log.Error("provider order creation failed", sl.Err(err))
		return nil, ErrProviderOrder
	}

	now := time.Now().UTC()
	order := models.PendingSignupOrder{
		Kind:            models.OrderKindRenewal,
		ProviderOrderID: providerOrder.ID,
		PlanID:          plan.ID,
		Amount:          plan.Amount,
		Currency:        plan.Currency,
		Name:            user.Name,
		Email:           user.Email,
		Mobile:          user.Mobile,
		UserUID:         &user.UID,
		Status:          models.OrderStatusCreated,
		ExpiresAt:       now.Add(s.orderTTL),
	}
	if _, err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &CheckoutInfo{
		OrderID:  providerOrder.ID,
		KeyID:    s.provider.KeyID(),
		Amount:   plan.Amount,
		Currency: plan.Currency,
		PlanName: plan.Name,
	}, nil
}

// VerifyResult результат проверки платежа.
type VerifyResult struct {
	Renewal     bool              // заказ принадлежал существующему пользователю
	AlreadyDone bool              // повторное подтверждение уже потреблённого заказа
	AccessToken string            // токен сессии, пустой для первичного продления
	User        models.PublicUser // публичное представление пользователя
	PlanID      string
}

// Verify проверяет подпись результата оплаты и активирует подписку.
//
// Подпись пересчитывается на общем секрете провайдера и сравнивается за
// постоянное время; любое несовпадение — терминальная ошибка. Потребление
// заказа атомарно: повторное подтверждение того же заказа не создаёт второго
// пользователя, а возвращает заново выпущенный токен сессии.
func (s *Service) Verify(ctx context.Context, authUID, orderID, paymentID, signature string) (*VerifyResult, error) {
	const op = "payment.Verify"
	if s.provider == nil {
		return nil, ErrNotConfigured
	}

	if !s.provider.VerifySignature(orderID, paymentID, signature) {
		s.log.Error("payment signature mismatch",
			slog.String("provider_order_id", orderID),
			slog.String("provider_payment_id", paymentID))
		return nil, ErrSignatureMismatch
	}

	order, err := s.repo.GetOrderByProviderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownOrder
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	plan, ok := Plans[order.PlanID]
	if !ok {
		return nil, ErrInvalidPlan
	}

	switch order.Status {
	case models.OrderStatusCreated:
		// продолжаем ниже
	case models.OrderStatusVerified:
		return s.verifiedResult(ctx, authUID, order)
	default:
		return nil, ErrUnknownOrder
	}

	now := time.Now().UTC()
	expiry := now.Add(time.Duration(plan.PeriodDays) * 24 * time.Hour)

	if order.Kind == models.OrderKindRenewal && order.UserUID != nil {
		if authUID == "" || authUID != *order.UserUID {
			return nil, ErrOrderOwnership
		}
		err = s.repo.RenewFromOrder(ctx, orderID, paymentID, *order.UserUID, plan.ID, now, expiry)
		if err != nil {
			if errors.Is(err, repository.ErrOrderConsumed) {
				// конкурентное подтверждение: заказ уже потреблён другим запросом
				fresh, rerr := s.repo.GetOrderByProviderID(ctx, orderID)
				if rerr != nil {
					return nil, fmt.Errorf("%s: %w", op, rerr)
				}
				return s.verifiedResult(ctx, authUID, fresh)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user, err := s.repo.GetUser(ctx, *order.UserUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.notifyPurchase(order, plan)
		return &VerifyResult{
			Renewal: true,
			User:    user.Public(),
			PlanID:  plan.ID,
		}, nil
	}

	user := models.User{
		Email:             order.Email,
		Name:              order.Name,
		PasswordHash:      order.PasswordHash,
		Mobile:            order.Mobile,
		IsAdmin:           strings.EqualFold(order.Email, s.adminEmail),
		IsSubscribed:      true,
		SubscriptionPlan:  &plan.ID,
		SubscriptionStart: &now,
	}
	user.SubscriptionExpiry = &expiry

	newUID, err := s.repo.ActivateSignupOrder(ctx, orderID, paymentID, user, now)
	if err != nil {
		if errors.Is(err, repository.ErrOrderConsumed) {
			// конкурентное подтверждение: заказ уже потреблён другим запросом
			fresh, rerr := s.repo.GetOrderByProviderID(ctx, orderID)
			if rerr != nil {
				return nil, fmt.Errorf("%s: %w", op, rerr)
			}
			return s.verifiedResult(ctx, authUID, fresh)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.UID = newUID

	token, err := s.tokens.GenerateToken(user.UID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment verified, account activated",
		slog.String("provider_order_id", orderID),
		slog.String("user_uid", user.UID),
		slog.String("plan_id", plan.ID))
	s.notifyPurchase(order, plan)

	return &VerifyResult{
		AccessToken: token,
		User:        user.Public(),
		PlanID:      plan.ID,
	}, nil
}

// verifiedResult формирует идемпотентный ответ для уже потреблённого заказа.
//
// Повторное подтверждение заказа на продление требует той же аутентификации
// и владения, что и первое, и не выдаёт токен: иначе перехваченная связка
// идентификаторов платежа превращалась бы в постоянный пропуск в чужую
// учётную запись. Токен переиздаётся только для заказов на регистрацию.
func (s *Service) verifiedResult(ctx context.Context, authUID string, order *models.PendingSignupOrder) (*VerifyResult, error) {
	const op = "payment.verifiedResult"
	if order.Status != models.OrderStatusVerified || order.UserUID == nil {
		return nil, ErrUnknownOrder
	}
	if order.Kind == models.OrderKindRenewal {
		if authUID == "" || authUID != *order.UserUID {
			return nil, ErrOrderOwnership
		}
		user, err := s.repo.GetUser(ctx, *order.UserUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &VerifyResult{
			Renewal:     true,
			AlreadyDone: true,
			User:        user.Public(),
			PlanID:      order.PlanID,
		}, nil
	}
	user, err := s.repo.GetUser(ctx, *order.UserUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	token, err := s.tokens.GenerateToken(user.UID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &VerifyResult{
		AlreadyDone: true,
		AccessToken: token,
		User:        user.Public(),
		PlanID:      order.PlanID,
	}, nil
}

func (s *Service) notifyPurchase(order *models.PendingSignupOrder, plan Plan) {
	if s.publisher == nil {
		return
	}
	msg := models.PurchaseNotification{
		Name:   order.Name,
		Email:  order.Email,
		Mobile: order.Mobile,
		PlanID: plan.ID,
		Amount: plan.Amount,
	}
	if err := s.publisher.Publish(rabbitmq.RoutingKeyPurchase, msg); err != nil {
		s.log.Warn("failed to publish purchase notification", sl.Err(err))
	}
}

// ListOrders возвращает заказы пользователя.
func (s *Service) ListOrders(ctx context.Context, userUID string) ([]*models.OrderInfo, error) {
	return s.repo.ListOrdersByUser(ctx, userUID, 100)
}
