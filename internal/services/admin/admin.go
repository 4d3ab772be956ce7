// Package admin — управление администраторами, их правами, ключами PIX
// и списком пользователей.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAdminNotFound = errors.New("admin not found")
	ErrAlreadyAdmin  = errors.New("user is already an admin")
	ErrSelfDemotion  = errors.New("admins cannot remove themselves")
)

// Repository — хранилище администраторов, профилей и ключей PIX.
type Repository interface {
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	AdminByID(ctx context.Context, adminID string) (*models.Admin, error)
	CreateAdmin(ctx context.Context, userID string, superAdmin bool) (string, error)
	DeleteAdmin(ctx context.Context, adminID string) (int, error)
	ProfileByID(ctx context.Context, userID string) (*models.Profile, error)
	ListProfiles(ctx context.Context, limit, offset int) ([]models.Profile, error)
	PixKeyByAdmin(ctx context.Context, adminID string) (*models.PixKey, error)
	UpsertPixKey(ctx context.Context, adminID string, keyType models.PixKeyType, value string) (*models.PixKey, error)
}

// Permissions меняет права и сбрасывает их кеш.
type Permissions interface {
	Replace(ctx context.Context, adminID string, perms []models.Permission) error
	Grant(ctx context.Context, adminID string, p models.Permission) error
	Revoke(ctx context.Context, adminID string, p models.Permission) error
	Invalidate(ctx context.Context, adminID string)
}

// Roles сбрасывает кеш роли пользователя.
type Roles interface {
	Invalidate(ctx context.Context, userID string)
}

// Subscriptions сбрасывает кеш подписки администратора.
type Subscriptions interface {
	Invalidate(ctx context.Context, adminID string)
}

// Service — управление администраторами.
type Service struct {
	repo          Repository
	permissions   Permissions
	roles         Roles
	subscriptions Subscriptions
	log           *slog.Logger
}

// New создаёт Service.
func New(log *slog.Logger, repo Repository, permissions Permissions, roles Roles, subscriptions Subscriptions) *Service {
	return &Service{
		repo:          repo,
		permissions:   permissions,
		roles:         roles,
		subscriptions: subscriptions,
		log:           log,
	}
}

// Admins возвращает всех администраторов.
func (s *Service) Admins(ctx context.Context) ([]models.Admin, error) {
	const op = "admin.Admins"

	list, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Promote делает пользователя администратором с заданными правами.
func (s *Service) Promote(ctx context.Context, userID string, superAdmin bool, perms []models.Permission) (*models.Admin, error) {
	const op = "admin.Promote"

	if _, err := s.repo.ProfileByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	adminID, err := s.repo.CreateAdmin(ctx, userID, superAdmin)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyAdmin)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(perms) > 0 && !superAdmin {
		if err := s.permissions.Replace(ctx, adminID, perms); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	s.roles.Invalidate(ctx, userID)

	a, err := s.repo.AdminByID(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user promoted to admin",
		slog.String("user_id", userID), slog.String("admin_id", adminID), slog.Bool("super_admin", superAdmin))
	return a, nil
}

// SetPermissions заменяет права администратора.
func (s *Service) SetPermissions(ctx context.Context, adminID string, perms []models.Permission) (*models.Admin, error) {
	const op = "admin.SetPermissions"

	return s.changePermissions(ctx, op, adminID, func() error {
		return s.permissions.Replace(ctx, adminID, perms)
	})
}

// GrantPermission добавляет одно право администратору.
func (s *Service) GrantPermission(ctx context.Context, adminID string, p models.Permission) (*models.Admin, error) {
	const op = "admin.GrantPermission"

	return s.changePermissions(ctx, op, adminID, func() error {
		return s.permissions.Grant(ctx, adminID, p)
	})
}

// RevokePermission убирает одно право администратора.
func (s *Service) RevokePermission(ctx context.Context, adminID string, p models.Permission) (*models.Admin, error) {
	const op = "admin.RevokePermission"

	return s.changePermissions(ctx, op, adminID, func() error {
		return s.permissions.Revoke(ctx, adminID, p)
	})
}

func (s *Service) changePermissions(ctx context.Context, op, adminID string, change func() error) (*models.Admin, error) {
	if err := change(); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAdminNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a, err := s.repo.AdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAdminNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// Demote снимает права администратора. actorAdminID — кто выполняет действие.
func (s *Service) Demote(ctx context.Context, adminID, actorAdminID string) error {
	const op = "admin.Demote"

	if adminID == actorAdminID {
		return fmt.Errorf("%s: %w", op, ErrSelfDemotion)
	}
	a, err := s.repo.AdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAdminNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repo.DeleteAdmin(ctx, adminID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.roles.Invalidate(ctx, a.UserID)
	s.permissions.Invalidate(ctx, adminID)
	s.subscriptions.Invalidate(ctx, adminID)
	s.log.Info("admin removed", slog.String("admin_id", adminID), slog.String("by", actorAdminID))
	return nil
}

// Users возвращает пользователей с пагинацией.
func (s *Service) Users(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	const op = "admin.Users"

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListProfiles(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// PixKey возвращает ключ PIX администратора или nil.
func (s *Service) PixKey(ctx context.Context, adminID string) (*models.PixKey, error) {
	const op = "admin.PixKey"

	k, err := s.repo.PixKeyByAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return k, nil
}

// SetPixKey сохраняет ключ PIX. Значение хранится как есть.
func (s *Service) SetPixKey(ctx context.Context, adminID string, in models.PixKeyInput) (*models.PixKey, error) {
	const op = "admin.SetPixKey"

	k, err := s.repo.UpsertPixKey(ctx, adminID, models.PixKeyType(in.KeyType), in.KeyValue)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return k, nil
}
