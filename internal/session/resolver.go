// Package session собирает контекст авторизации запроса: роль, права и подписку.
package session

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// RoleResolver определяет роль пользователя.
type RoleResolver interface {
	Resolve(ctx context.Context, userID string) models.AdminRole
}

// PermissionLoader загружает права администратора.
type PermissionLoader interface {
	Load(ctx context.Context, adminID string, isSuperAdmin bool) (models.PermissionSet, error)
}

// SubscriptionReader читает подписку администратора.
type SubscriptionReader interface {
	Current(ctx context.Context, adminID string) (*models.Subscription, error)
}

// Resolver объединяет одновременные запросы одних и тех же данных и ограничивает
// время ожидания. Загрузка выполняется на собственном контексте резолвера:
// уход одного вызывающего не отменяет общий запрос, а Close отменяет все.
type Resolver struct {
	roles         RoleResolver
	permissions   PermissionLoader
	subscriptions SubscriptionReader

	group  singleflight.Group
	base   context.Context
	cancel context.CancelFunc

	wait         time.Duration
	fetchTimeout time.Duration
	log          *slog.Logger
}

// New создаёт Resolver. wait — сколько запрос ждёт данные, прежде чем
// считать их загружающимися; fetchTimeout ограничивает сам запрос к хранилищу.
func New(log *slog.Logger, roles RoleResolver, permissions PermissionLoader, subscriptions SubscriptionReader,
	wait, fetchTimeout time.Duration) *Resolver {
	base, cancel := context.WithCancel(context.Background())
	return &Resolver{
		roles:         roles,
		permissions:   permissions,
		subscriptions: subscriptions,
		base:          base,
		cancel:        cancel,
		wait:          wait,
		fetchTimeout:  fetchTimeout,
		log:           log,
	}
}

// Close отменяет все незавершённые загрузки.
func (r *Resolver) Close() {
	r.cancel()
}

// Role возвращает роль пользователя. ready == false — данные ещё загружаются.
func (r *Resolver) Role(ctx context.Context, userID string) (models.AdminRole, bool) {
	val, _, ready := r.do(ctx, "role:"+userID, func(fctx context.Context) (any, error) {
		return r.roles.Resolve(fctx, userID), nil
	})
	if !ready {
		return models.AdminRole{}, false
	}
	return val.(models.AdminRole), true
}

// Permissions возвращает права администратора. Ошибка загрузки даёт
// загруженный nil набор, то есть отказ.
func (r *Resolver) Permissions(ctx context.Context, role models.AdminRole) (models.PermissionSet, bool) {
	if !role.IsAdmin {
		return nil, true
	}
	val, err, ready := r.do(ctx, "permissions:"+role.AdminID, func(fctx context.Context) (any, error) {
		return r.permissions.Load(fctx, role.AdminID, role.IsSuperAdmin)
	})
	if !ready {
		return nil, false
	}
	if err != nil {
		r.log.Error("failed to load permissions", slog.String("admin_id", role.AdminID), sl.Err(err))
		return nil, true
	}
	return val.(models.PermissionSet), true
}

// Subscription возвращает подписку администратора. Ошибка загрузки даёт nil, то есть отказ.
func (r *Resolver) Subscription(ctx context.Context, role models.AdminRole) (*models.Subscription, bool) {
	if !role.IsAdmin || role.AdminID == "" {
		return nil, true
	}
	val, err, ready := r.do(ctx, "subscription:"+role.AdminID, func(fctx context.Context) (any, error) {
		return r.subscriptions.Current(fctx, role.AdminID)
	})
	if !ready {
		return nil, false
	}
	if err != nil {
		r.log.Error("failed to load subscription", slog.String("admin_id", role.AdminID), sl.Err(err))
		return nil, true
	}
	sub, _ := val.(*models.Subscription)
	return sub, true
}

func (r *Resolver) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	ch := r.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(r.base, r.fetchTimeout)
		defer cancel()
		return fn(fctx)
	})

	timer := time.NewTimer(r.wait)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.Val, res.Err, true
	case <-timer.C:
		return nil, nil, false
	case <-ctx.Done():
		return nil, nil, false
	}
}
