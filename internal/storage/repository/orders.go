package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/flagship-content/internal/models"
)

// ErrOrderConsumed возвращается, когда условный переход заказа из статуса
// created не удался: заказ уже потреблён, истёк или отсутствует.
var ErrOrderConsumed = errors.New("order is not in created status")

func scanOrder(row interface{ Scan(...any) error }) (*models.PendingSignupOrder, error) {
	o := &models.PendingSignupOrder{}
	var paymentID, mobile, userUID sql.NullString
	var verifiedAt sql.NullTime
	if err := row.Scan(&o.ID, &o.Kind, &o.ProviderOrderID, &paymentID, &o.PlanID, &o.Amount,
		&o.Currency, &o.Name, &o.Email, &o.PasswordHash, &mobile, &userUID,
		&o.Status, &o.CreatedAt, &o.ExpiresAt, &verifiedAt); err != nil {
		return nil, err
	}
	if paymentID.Valid {
		o.ProviderPaymentID = &paymentID.String
	}
	if mobile.Valid {
		o.Mobile = &mobile.String
	}
	if userUID.Valid {
		o.UserUID = &userUID.String
	}
	if verifiedAt.Valid {
		o.VerifiedAt = &verifiedAt.Time
	}
	return o, nil
}

const orderColumns = `id, kind, provider_order_id, provider_payment_id, plan_id, amount,
			      currency, name, email, password_hash, mobile, user_uid,
			      status, created_at, expires_at, verified_at`

// CreateOrder вставляет новый незавершённый заказ и возвращает его ID.
func (s *Storage) CreateOrder(ctx context.Context, order models.PendingSignupOrder) (int, error) {
	const op = "storage.CreateOrder"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO pending_signup_orders (kind, provider_order_id, plan_id, amount, currency,
			      name, email, password_hash, mobile, user_uid, status, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		order.Kind, order.ProviderOrderID, order.PlanID, order.Amount, order.Currency,
		order.Name, order.Email, order.PasswordHash, order.Mobile, order.UserUID,
		order.Status, order.ExpiresAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetOrderByProviderID возвращает заказ по идентификатору заказа у провайдера.
func (s *Storage) GetOrderByProviderID(ctx context.Context, providerOrderID string) (*models.PendingSignupOrder, error) {
	const op = "storage.GetOrderByProviderID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + orderColumns + `
			  FROM pending_signup_orders
			  WHERE provider_order_id = $1`
	o, err := scanOrder(s.DB.QueryRowContext(ctx, query, providerOrderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

// ActivateSignupOrder атомарно потребляет заказ и создаёт пользователя.
//
// Переход заказа created -> verified и вставка пользователя выполняются
// в одной транзакции: два конкурентных подтверждения одного заказа создают
// ровно одного пользователя, проигравший получает ErrOrderConsumed. Сбой
// между созданием пользователя и отметкой заказа невозможен — откатывается
// вся транзакция целиком.
func (s *Storage) ActivateSignupOrder(ctx context.Context, providerOrderID, paymentID string,
	user models.User, verifiedAt time.Time) (string, error) {
	const op = "storage.ActivateSignupOrder"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	consume := `UPDATE pending_signup_orders
			    SET status = $1, provider_payment_id = $2, verified_at = $3
			    WHERE provider_order_id = $4
			      AND status = $5
			      AND expires_at > $3
			    RETURNING id`
	var orderID int
	err = tx.QueryRowContext(ctx, consume,
		models.OrderStatusVerified, paymentID, verifiedAt,
		providerOrderID, models.OrderStatusCreated).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, ErrOrderConsumed)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	insert := `INSERT INTO users (email, name, password_hash, mobile, is_admin, is_subscribed,
			      subscription_plan, subscription_started_at, subscription_expiry)
			   VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8)
			   RETURNING uid`
	var newUID string
	err = tx.QueryRowContext(ctx, insert,
		user.Email, user.Name, user.PasswordHash, user.Mobile, user.IsAdmin,
		user.SubscriptionPlan, user.SubscriptionStart, user.SubscriptionExpiry).Scan(&newUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	bind := `UPDATE pending_signup_orders
			 SET user_uid = $1, password_hash = ''
			 WHERE id = $2`
	if _, err = tx.ExecContext(ctx, bind, newUID, orderID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// RenewFromOrder атомарно потребляет заказ на продление и продлевает
// подписку уже существующего пользователя.
func (s *Storage) RenewFromOrder(ctx context.Context, providerOrderID, paymentID, userUID, planID string,
	start, expiry time.Time) error {
	const op = "storage.RenewFromOrder"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	consume := `UPDATE pending_signup_orders
			    SET status = $1, provider_payment_id = $2, verified_at = $3
			    WHERE provider_order_id = $4
			      AND status = $5
			      AND expires_at > $3
			    RETURNING id`
	var orderID int
	err = tx.QueryRowContext(ctx, consume,
		models.OrderStatusVerified, paymentID, start,
		providerOrderID, models.OrderStatusCreated).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, ErrOrderConsumed)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	update := `UPDATE users
			   SET is_subscribed = TRUE, subscription_plan = $1,
			       subscription_started_at = $2, subscription_expiry = $3,
			       updated_at = NOW()
			   WHERE uid = $4`
	if _, err = tx.ExecContext(ctx, update, planID, start, expiry, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListOrdersByUser возвращает заказы пользователя, новые первыми.
func (s *Storage) ListOrdersByUser(ctx context.Context, userUID string, limit int) ([]*models.OrderInfo, error) {
	const op = "storage.ListOrdersByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT provider_order_id, plan_id, amount, currency, status, created_at
			  FROM pending_signup_orders
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.OrderInfo
	for rows.Next() {
		var oi models.OrderInfo
		if err := rows.Scan(&oi.ProviderOrderID, &oi.PlanID, &oi.Amount,
			&oi.Currency, &oi.Status, &oi.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &oi)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ExpireStaleOrders переводит просроченные заказы в статус expired и стирает
// хранящийся в них хэш пароля. Возвращает количество затронутых строк.
func (s *Storage) ExpireStaleOrders(ctx context.Context, now time.Time) (int, error) {
	const op = "storage.ExpireStaleOrders"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE pending_signup_orders
			  SET status = $1, password_hash = ''
			  WHERE status = $2 AND expires_at <= $3`
	result, err := s.DB.ExecContext(ctx, query,
		models.OrderStatusExpired, models.OrderStatusCreated, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
