// Package post содержит бизнес-логику библиотеки контента: CRUD статей,
// кеширование и проверку права на полный текст платного контента.
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/lib/slug"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/storage/repository"
)

// ErrNotFound возвращается, когда статья отсутствует.
var ErrNotFound = errors.New("post not found")

// previewLength длина усечённого текста для неподписанных читателей.
const previewLength = 500

// Repository определяет методы для работы со статьями в хранилище.
type Repository interface {
	CreatePost(ctx context.Context, post models.Post) (string, error)
	ReadPost(ctx context.Context, idOrSlug string) (*models.Post, error)
	UpdatePost(ctx context.Context, post models.Post) (int, error)
	RemovePost(ctx context.Context, id string) (int, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует бизнес-логику работы со статьями, включая кеширование.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Entitled сообщает, имеет ли пользователь право на полный текст платного
// контента: активная подписка с датой истечения в будущем. Истёкшая подписка
// считается отсутствующей, даже если признак is_subscribed ещё не снят.
func Entitled(user *models.User, now time.Time) bool {
	if user == nil || !user.IsSubscribed {
		return false
	}
	return user.SubscriptionExpiry != nil && user.SubscriptionExpiry.After(now)
}

// view формирует представление статьи для читателя: полный текст для
// бесплатных статей и подписчиков, усечённое превью для остальных.
func view(p *models.Post, entitled bool) *models.PostView {
	v := &models.PostView{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		IsPremium: p.IsPremium,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.IsPremium && !entitled {
		v.IsPreview = true
		// Усечение по рунам: байтовый срез ломает многобайтовые символы.
		runes := []rune(p.Content)
		cut := previewLength
		if len(runes) <= cut {
			// Короткий платный текст: превью всегда строго короче оригинала.
			cut = len(runes) / 2
		}
		v.Content = string(runes[:cut]) + "..."
	}
	return v
}

// List возвращает список статей для данного читателя с пагинацией.
func (s *Service) List(ctx context.Context, reader *models.User, limit, offset int) ([]*models.PostView, error) {
	posts, err := s.repo.ListPosts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	entitled := Entitled(reader, time.Now().UTC())
	result := make([]*models.PostView, 0, len(posts))
	for _, p := range posts {
		result = append(result, view(p, entitled))
	}
	return result, nil
}

// Read возвращает статью по ID или слагу для данного читателя.
func (s *Service) Read(ctx context.Context, idOrSlug string, reader *models.User) (*models.PostView, error) {
	var post *models.Post
	cacheKey := "post:" + idOrSlug
	found, err := s.cache.Get(cacheKey, &post)
	if err != nil {
		s.log.Warn("cache lookup failed", slog.String("key", cacheKey), sl.Err(err))
		found = false
	}
	if !found {
		post, err = s.repo.ReadPost(ctx, idOrSlug)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if err := s.cache.Set(cacheKey, post, time.Hour); err != nil {
			s.log.Warn("failed to cache post", slog.String("key", cacheKey), sl.Err(err))
		}
	}
	return view(post, Entitled(reader, time.Now().UTC())), nil
}

// uniqueSlug подбирает свободный слаг по заголовку: base, base-1, base-2 и т.д.
func (s *Service) uniqueSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for counter := 1; ; counter++ {
		taken, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}

// Create создает новую статью и возвращает её полное представление.
func (s *Service) Create(ctx context.Context, req models.DummyPost) (*models.PostView, error) {
	postSlug, err := s.uniqueSlug(ctx, req.Title, "")
	if err != nil {
		return nil, err
	}
	isPremium := true
	if req.IsPremium != nil {
		isPremium = *req.IsPremium
	}
	post := models.Post{
		Title:     req.Title,
		Slug:      postSlug,
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		IsPremium: isPremium,
	}
	id, err := s.repo.CreatePost(ctx, post)
	if err != nil {
		return nil, err
	}
	s.log.Info("created new post", slog.String("id", id), slog.String("slug", postSlug))

	created, err := s.repo.ReadPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return view(created, true), nil
}

// Update обновляет статью и инвалидирует кеш.
func (s *Service) Update(ctx context.Context, id string, req models.DummyPost) (*models.PostView, error) {
	existing, err := s.repo.ReadPost(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	postSlug := existing.Slug
	if req.Title != existing.Title {
		postSlug, err = s.uniqueSlug(ctx, req.Title, existing.ID)
		if err != nil {
			return nil, err
		}
	}
	isPremium := existing.IsPremium
	if req.IsPremium != nil {
		isPremium = *req.IsPremium
	}
	post := models.Post{
		ID:        existing.ID,
		Title:     req.Title,
		Slug:      postSlug,
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		IsPremium: isPremium,
	}
	if _, err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	s.invalidate(existing)

	updated, err := s.repo.ReadPost(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	return view(updated, true), nil
}

// Remove удаляет статью по ID и инвалидирует кеш.
func (s *Service) Remove(ctx context.Context, id string) error {
	existing, err := s.repo.ReadPost(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	count, err := s.repo.RemovePost(ctx, existing.ID)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	s.invalidate(existing)
	return nil
}

// invalidate сбрасывает обе кеш-записи статьи: по ID и по слагу.
func (s *Service) invalidate(p *models.Post) {
	for _, key := range []string{"post:" + p.ID, "post:" + p.Slug} {
		if err := s.cache.Invalidate(key); err != nil {
			s.log.Warn("failed to invalidate cache", slog.String("key", key), sl.Err(err))
		}
	}
}
