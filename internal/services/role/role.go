// Package role определяет, является ли пользователь администратором.
package role

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// Repository — удалённые вызовы для определения роли.
type Repository interface {
	// IsAdmin вызывает процедуру is_admin.
	IsAdmin(ctx context.Context, userID string) (bool, error)
	// AdminByUserID возвращает запись администратора.
	AdminByUserID(ctx context.Context, userID string) (*models.Admin, error)
}

// Cache — кеш результатов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service определяет роль пользователя.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт Service. ttl — окно устаревания кешированной роли.
func New(log *slog.Logger, repo Repository, cache Cache, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// CacheKey возвращает ключ кеша роли пользователя.
func CacheKey(userID string) string {
	return "role:" + userID
}

// Resolve возвращает роль пользователя. При любой ошибке пользователь
// считается обычным: оба флага false. Повторов нет.
func (s *Service) Resolve(ctx context.Context, userID string) models.AdminRole {
	const op = "role.Resolve"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	if userID == "" {
		return models.AdminRole{}
	}

	var cached models.AdminRole
	found, err := s.cache.Get(ctx, CacheKey(userID), &cached)
	if err != nil {
		log.Warn("failed to read role from cache", sl.Err(err))
	}
	if found {
		return cached
	}

	isAdmin, err := s.repo.IsAdmin(ctx, userID)
	if err != nil {
		log.Error("is_admin call failed", sl.Err(err))
		return models.AdminRole{}
	}

	var role models.AdminRole
	if isAdmin {
		admin, err := s.repo.AdminByUserID(ctx, userID)
		if err != nil {
			log.Error("failed to load admin row", sl.Err(err))
			return models.AdminRole{}
		}
		role = models.AdminRole{
			AdminID:      admin.ID,
			IsAdmin:      true,
			IsSuperAdmin: admin.IsSuperAdmin,
		}
	}

	if err := s.cache.Set(ctx, CacheKey(userID), role, s.ttl); err != nil {
		log.Warn("failed to cache role", sl.Err(err))
	}
	return role
}

// Invalidate сбрасывает кешированную роль, например после повышения или снятия прав.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, CacheKey(userID)); err != nil {
		s.log.Warn("failed to invalidate role", slog.String("user_id", userID), sl.Err(err))
	}
}
