// Package permission загружает и проверяет права администраторов.
package permission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// Repository — хранилище явно выданных прав.
type Repository interface {
	AdminPermissions(ctx context.Context, adminID string) ([]string, error)
	ReplaceAdminPermissions(ctx context.Context, adminID string, perms []models.Permission) error
}

// Cache — кеш наборов прав.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Store загружает права и управляет ими.
type Store struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт Store.
func New(log *slog.Logger, repo Repository, cache Cache, ttl time.Duration) *Store {
	return &Store{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// CacheKey возвращает ключ кеша прав администратора.
func CacheKey(adminID string) string {
	return "permissions:" + adminID
}

// HasPermission — true для супер-администратора, иначе членство в загруженном наборе.
// nil набор означает «ещё не загружено» и прав не даёт.
func HasPermission(isSuperAdmin bool, set models.PermissionSet, p models.Permission) bool {
	if isSuperAdmin {
		return true
	}
	return set.Has(p)
}

// Load возвращает явно выданные права. Для супер-администратора запрос
// не выполняется: возвращается пустой загруженный набор, права следуют из флага.
func (s *Store) Load(ctx context.Context, adminID string, isSuperAdmin bool) (models.PermissionSet, error) {
	const op = "permission.Load"
	log := s.log.With(sl.Op(op), slog.String("admin_id", adminID))

	if isSuperAdmin {
		return models.NewPermissionSet(), nil
	}
	if adminID == "" {
		return models.NewPermissionSet(), nil
	}

	var cached []models.Permission
	found, err := s.cache.Get(ctx, CacheKey(adminID), &cached)
	if err != nil {
		log.Warn("failed to read permissions from cache", sl.Err(err))
	}
	if found {
		return models.NewPermissionSet(cached...), nil
	}

	raw, err := s.repo.AdminPermissions(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	perms := make([]models.Permission, 0, len(raw))
	for _, token := range raw {
		p, err := models.ParsePermission(token)
		if err != nil {
			log.Warn("dropping unknown permission", slog.String("permission", token))
			continue
		}
		perms = append(perms, p)
	}

	set := models.NewPermissionSet(perms...)
	if err := s.cache.Set(ctx, CacheKey(adminID), set.List(), s.ttl); err != nil {
		log.Warn("failed to cache permissions", sl.Err(err))
	}
	return set, nil
}

// Replace заменяет набор прав администратора.
func (s *Store) Replace(ctx context.Context, adminID string, perms []models.Permission) error {
	const op = "permission.Replace"

	set := models.NewPermissionSet(perms...)
	for p := range set {
		if !p.Valid() {
			return fmt.Errorf("%s: unknown permission %q", op, p)
		}
	}
	if err := s.repo.ReplaceAdminPermissions(ctx, adminID, set.List()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.Invalidate(ctx, adminID)
	return nil
}

// Grant добавляет право к текущему набору.
func (s *Store) Grant(ctx context.Context, adminID string, p models.Permission) error {
	const op = "permission.Grant"

	set, err := s.current(ctx, adminID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	set[p] = struct{}{}
	return s.Replace(ctx, adminID, set.List())
}

// Revoke убирает право из текущего набора.
func (s *Store) Revoke(ctx context.Context, adminID string, p models.Permission) error {
	const op = "permission.Revoke"

	set, err := s.current(ctx, adminID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	delete(set, p)
	return s.Replace(ctx, adminID, set.List())
}

// Invalidate сбрасывает кешированный набор прав.
func (s *Store) Invalidate(ctx context.Context, adminID string) {
	if err := s.cache.Invalidate(ctx, CacheKey(adminID)); err != nil {
		s.log.Warn("failed to invalidate permissions", slog.String("admin_id", adminID), sl.Err(err))
	}
}

func (s *Store) current(ctx context.Context, adminID string) (models.PermissionSet, error) {
	raw, err := s.repo.AdminPermissions(ctx, adminID)
	if err != nil {
		return nil, err
	}
	set := models.NewPermissionSet()
	for _, token := range raw {
		if p := models.Permission(token); p.Valid() {
			set[p] = struct{}{}
		}
	}
	return set, nil
}
