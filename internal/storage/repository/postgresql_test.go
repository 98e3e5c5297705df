package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/flagship-content/internal/models"
)

func TestCreateAndGetUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	mobile := "+911234567890"
	uid, err := storage.CreateUser(ctx, models.User{
		Email:        "reader@example.com",
		Name:         "Reader",
		PasswordHash: "hashedpassword",
		Mobile:       &mobile,
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	byUID, err := storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", byUID.Email)
	assert.Equal(t, "Reader", byUID.Name)
	require.NotNil(t, byUID.Mobile)
	assert.Equal(t, mobile, *byUID.Mobile)
	assert.False(t, byUID.IsSubscribed)
	assert.Nil(t, byUID.SubscriptionPlan)

	byEmail, err := storage.GetUserByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, byEmail.UID)

	_, err = storage.GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = storage.CreateUser(ctx, models.User{
		Email:        "reader@example.com",
		Name:         "Duplicate",
		PasswordHash: "hashedpassword",
	})
	require.Error(t, err)
}

func TestUpdatePassword(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "reset@example.com", "Reset", "oldhash")

	err := storage.UpdatePassword(ctx, uid, "newhash")
	require.NoError(t, err)

	user, err := storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "newhash", user.PasswordHash)

	err = storage.UpdatePassword(ctx, "00000000-0000-0000-0000-000000000000", "newhash")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	id, err := storage.CreatePost(ctx, models.Post{
		Title:     "First Article",
		Slug:      "first-article",
		Excerpt:   "Intro",
		Content:   "Full text of the first article",
		IsPremium: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	byID, err := storage.ReadPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "First Article", byID.Title)

	bySlug, err := storage.ReadPost(ctx, "first-article")
	require.NoError(t, err)
	assert.Equal(t, id, bySlug.ID)

	_, err = storage.ReadPost(ctx, "missing-slug")
	require.ErrorIs(t, err, ErrNotFound)

	exists, err := storage.SlugExists(ctx, "first-article", "")
	require.NoError(t, err)
	assert.True(t, exists)

	// Собственный слаг статьи не считается занятым при её обновлении
	exists, err = storage.SlugExists(ctx, "first-article", id)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = storage.SlugExists(ctx, "unused-slug", "")
	require.NoError(t, err)
	assert.False(t, exists)

	updated, err := storage.UpdatePost(ctx, models.Post{
		ID:        id,
		Title:     "First Article, Updated",
		Slug:      "first-article-updated",
		Excerpt:   "Intro",
		Content:   "Revised text",
		IsPremium: false,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	reread, err := storage.ReadPost(ctx, "first-article-updated")
	require.NoError(t, err)
	assert.Equal(t, "First Article, Updated", reread.Title)
	assert.False(t, reread.IsPremium)

	removed, err := storage.RemovePost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = storage.ReadPost(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	removed, err = storage.RemovePost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestListPosts(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	factory.CreatePost(t, "Old", "old", "e", "c", false)
	// Гарантируем различимые created_at для проверки порядка
	time.Sleep(50 * time.Millisecond)
	factory.CreatePost(t, "Middle", "middle", "e", "c", true)
	time.Sleep(50 * time.Millisecond)
	factory.CreatePost(t, "New", "new", "e", "c", true)

	posts, err := storage.ListPosts(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "New", posts[0].Title)
	assert.Equal(t, "Middle", posts[1].Title)

	posts, err = storage.ListPosts(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Old", posts[0].Title)
}

func TestActivateSignupOrder(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	verification := NewTestVerification(storage)

	order := GetTestOrder("order_signup_1", "buyer@example.com")
	_, err := storage.CreateOrder(ctx, order)
	require.NoError(t, err)

	stored, err := storage.GetOrderByProviderID(ctx, "order_signup_1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCreated, stored.Status)
	assert.Equal(t, models.OrderKindSignup, stored.Kind)
	assert.Equal(t, int64(49900), stored.Amount)
	assert.Nil(t, stored.UserUID)

	now := time.Now()
	expiry := now.Add(30 * 24 * time.Hour)
	plan := "monthly"
	uid, err := storage.ActivateSignupOrder(ctx, "order_signup_1", "pay_1", models.User{
		Email:              order.Email,
		Name:               order.Name,
		PasswordHash:       order.PasswordHash,
		SubscriptionPlan:   &plan,
		SubscriptionStart:  &now,
		SubscriptionExpiry: &expiry,
	}, now)
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	user, err := storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.True(t, user.IsSubscribed)
	require.NotNil(t, user.SubscriptionExpiry)
	assert.WithinDuration(t, expiry, *user.SubscriptionExpiry, time.Second)

	// Хэш пароля стирается из заказа после создания пользователя
	verification.VerifyOrderState(t, "order_signup_1", models.OrderStatusVerified, "")

	consumed, err := storage.GetOrderByProviderID(ctx, "order_signup_1")
	require.NoError(t, err)
	require.NotNil(t, consumed.UserUID)
	assert.Equal(t, uid, *consumed.UserUID)
	require.NotNil(t, consumed.ProviderPaymentID)
	assert.Equal(t, "pay_1", *consumed.ProviderPaymentID)

	// Повторная активация того же заказа не создает второго пользователя
	_, err = storage.ActivateSignupOrder(ctx, "order_signup_1", "pay_1", models.User{
		Email:        order.Email,
		Name:         order.Name,
		PasswordHash: order.PasswordHash,
	}, time.Now())
	require.ErrorIs(t, err, ErrOrderConsumed)
	verification.VerifyUserCount(t, "buyer@example.com", 1)
}

func TestActivateSignupOrderExpired(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)

	order := GetTestOrder("order_expired_1", "late@example.com")
	order.ExpiresAt = time.Now().Add(-time.Minute)
	factory.CreateOrder(t, order)

	_, err := storage.ActivateSignupOrder(ctx, "order_expired_1", "pay_late", models.User{
		Email:        order.Email,
		Name:         order.Name,
		PasswordHash: order.PasswordHash,
	}, time.Now())
	require.ErrorIs(t, err, ErrOrderConsumed)
	verification.VerifyUserCount(t, "late@example.com", 0)
}

func TestRenewFromOrder(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	oldExpiry := time.Now().Add(24 * time.Hour)
	uid := factory.CreateSubscribedUser(t, "renewer@example.com", "Renewer", "monthly",
		time.Now().Add(-29*24*time.Hour), oldExpiry)

	order := GetTestOrder("order_renew_1", "renewer@example.com")
	order.Kind = models.OrderKindRenewal
	order.PlanID = "yearly"
	order.Amount = 499900
	order.PasswordHash = ""
	order.UserUID = &uid
	factory.CreateOrder(t, order)

	start := time.Now()
	newExpiry := start.Add(365 * 24 * time.Hour)
	err := storage.RenewFromOrder(ctx, "order_renew_1", "pay_renew", uid, "yearly", start, newExpiry)
	require.NoError(t, err)

	user, err := storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.True(t, user.IsSubscribed)
	require.NotNil(t, user.SubscriptionPlan)
	assert.Equal(t, "yearly", *user.SubscriptionPlan)
	require.NotNil(t, user.SubscriptionExpiry)
	assert.WithinDuration(t, newExpiry, *user.SubscriptionExpiry, time.Second)

	err = storage.RenewFromOrder(ctx, "order_renew_1", "pay_renew", uid, "yearly", start, newExpiry)
	require.ErrorIs(t, err, ErrOrderConsumed)
}

func TestListOrdersByUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "history@example.com", "History", "hashedpassword")

	first := GetTestOrder("order_hist_1", "history@example.com")
	first.UserUID = &uid
	first.Status = models.OrderStatusVerified
	factory.CreateOrder(t, first)
	time.Sleep(50 * time.Millisecond)

	second := GetTestOrder("order_hist_2", "history@example.com")
	second.PlanID = "yearly"
	second.Amount = 499900
	second.UserUID = &uid
	factory.CreateOrder(t, second)

	// Чужой заказ не попадает в выборку
	factory.CreateOrder(t, GetTestOrder("order_hist_other", "someone@example.com"))

	orders, err := storage.ListOrdersByUser(ctx, uid, 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order_hist_2", orders[0].ProviderOrderID)
	assert.Equal(t, "order_hist_1", orders[1].ProviderOrderID)
	assert.Equal(t, int64(499900), orders[0].Amount)

	orders, err = storage.ListOrdersByUser(ctx, uid, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order_hist_2", orders[0].ProviderOrderID)
}

func TestExpireStaleOrders(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)

	stale1 := GetTestOrder("order_stale_1", "stale1@example.com")
	stale1.ExpiresAt = time.Now().Add(-time.Hour)
	factory.CreateOrder(t, stale1)

	stale2 := GetTestOrder("order_stale_2", "stale2@example.com")
	stale2.ExpiresAt = time.Now().Add(-time.Minute)
	factory.CreateOrder(t, stale2)

	fresh := GetTestOrder("order_fresh_1", "fresh@example.com")
	factory.CreateOrder(t, fresh)

	count, err := storage.ExpireStaleOrders(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	verification.VerifyOrderState(t, "order_stale_1", models.OrderStatusExpired, "")
	verification.VerifyOrderState(t, "order_stale_2", models.OrderStatusExpired, "")
	verification.VerifyOrderState(t, "order_fresh_1", models.OrderStatusCreated, "hashedpassword")

	// Повторный проход ничего не находит
	count, err = storage.ExpireStaleOrders(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFindLapsedAndClearSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	lapsedUID := factory.CreateSubscribedUser(t, "lapsed@example.com", "Lapsed", "monthly",
		time.Now().Add(-31*24*time.Hour), time.Now().Add(-24*time.Hour))
	factory.CreateSubscribedUser(t, "active@example.com", "Active", "yearly",
		time.Now(), time.Now().Add(300*24*time.Hour))
	factory.CreateUser(t, "free@example.com", "Free", "hashedpassword")

	lapsed, err := storage.FindLapsedSubscribers(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, lapsed, 1)
	assert.Equal(t, "lapsed@example.com", lapsed[0].Email)

	err = storage.ClearSubscription(ctx, lapsedUID)
	require.NoError(t, err)

	user, err := storage.GetUser(ctx, lapsedUID)
	require.NoError(t, err)
	assert.False(t, user.IsSubscribed)

	lapsed, err = storage.FindLapsedSubscribers(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, lapsed)
}

func TestCheckDatabaseReady(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	err := storage.CheckDatabaseReady(context.Background())
	require.NoError(t, err)
}
