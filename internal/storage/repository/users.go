package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/flagship-content/internal/models"
)

// ErrNotFound возвращается, когда запрошенная запись отсутствует в хранилище.
var ErrNotFound = errors.New("not found")

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var mobile, plan sql.NullString
	var start, expiry sql.NullTime
	if err := row.Scan(&u.UID, &u.Email, &u.Name, &u.PasswordHash, &mobile,
		&u.IsAdmin, &u.IsSubscribed, &plan, &start, &expiry,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if mobile.Valid {
		u.Mobile = &mobile.String
	}
	if plan.Valid {
		u.SubscriptionPlan = &plan.String
	}
	if start.Valid {
		u.SubscriptionStart = &start.Time
	}
	if expiry.Valid {
		u.SubscriptionExpiry = &expiry.Time
	}
	return u, nil
}

const userColumns = `uid, email, name, password_hash, mobile, is_admin, is_subscribed,
			      subscription_plan, subscription_started_at, subscription_expiry,
			      created_at, updated_at`

// CreateUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, name, password_hash, mobile, is_admin, is_subscribed,
			      subscription_plan, subscription_started_at, subscription_expiry)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Name, user.PasswordHash, user.Mobile, user.IsAdmin,
		user.IsSubscribed, user.SubscriptionPlan, user.SubscriptionStart,
		user.SubscriptionExpiry).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по его электронной почте.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdatePassword заменяет хэш пароля пользователя.
func (s *Storage) UpdatePassword(ctx context.Context, userUID, passwordHash string) error {
	const op = "storage.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET password_hash = $1, updated_at = NOW()
			  WHERE uid = $2`
	res, err := s.DB.ExecContext(ctx, query, passwordHash, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// FindLapsedSubscribers находит пользователей, у которых подписка истекла,
// но признак is_subscribed ещё не снят.
func (s *Storage) FindLapsedSubscribers(ctx context.Context, now time.Time) ([]*models.User, error) {
	const op = "storage.FindLapsedSubscribers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE is_subscribed = TRUE
			    AND subscription_expiry IS NOT NULL
			    AND subscription_expiry < $1`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ClearSubscription снимает признак подписки у пользователя.
func (s *Storage) ClearSubscription(ctx context.Context, userUID string) error {
	const op = "storage.ClearSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET is_subscribed = FALSE, updated_at = NOW()
			  WHERE uid = $1`
	_, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
