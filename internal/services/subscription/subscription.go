// Package subscription отвечает за подписки администраторов: текущая подписка,
// тарифные планы, оформление и отмена.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

var (
	// ErrPlanNotFound — план не существует или отключён.
	ErrPlanNotFound = errors.New("subscription plan not found")
	// ErrNoSubscription — у администратора нет подписки для отмены.
	ErrNoSubscription = errors.New("no subscription to cancel")
)

// Repository — хранилище подписок и планов.
type Repository interface {
	SubscriptionByAdmin(ctx context.Context, adminID string) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]models.Subscription, error)
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	PlanByID(ctx context.Context, planID string) (*models.SubscriptionPlan, error)
	UpsertPendingSubscription(ctx context.Context, adminID, planID, kiwifyOrderID string) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, adminID string) (int, error)
}

// Cache — кеш строк подписок.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// cachedRow хранит строку подписки или её отсутствие. Признак активности
// не кешируется: он зависит от текущего времени.
type cachedRow struct {
	Subscription *models.Subscription `json:"subscription"`
}

// Service реализует логику подписок.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт Service.
func New(log *slog.Logger, repo Repository, cache Cache, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// CacheKey возвращает ключ кеша подписки администратора.
func CacheKey(adminID string) string {
	return "subscription:" + adminID
}

// Current возвращает подписку администратора или nil, если её нет.
func (s *Service) Current(ctx context.Context, adminID string) (*models.Subscription, error) {
	const op = "subscription.Current"
	log := s.log.With(sl.Op(op), slog.String("admin_id", adminID))

	var cached cachedRow
	found, err := s.cache.Get(ctx, CacheKey(adminID), &cached)
	if err != nil {
		log.Warn("failed to read subscription from cache", sl.Err(err))
	}
	if found {
		return cached.Subscription, nil
	}

	sub, err := s.repo.SubscriptionByAdmin(ctx, adminID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(ctx, CacheKey(adminID), cachedRow{Subscription: sub}, s.ttl); err != nil {
		log.Warn("failed to cache subscription", sl.Err(err))
	}
	return sub, nil
}

// Plans возвращает активные тарифные планы.
func (s *Service) Plans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	const op = "subscription.Plans"

	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plans, nil
}

// Start оформляет подписку на план: создаёт запись pending со ссылкой на заказ
// Kiwify. Активирует её процедура обработки вебхука после оплаты.
func (s *Service) Start(ctx context.Context, adminID, planID string) (*models.Subscription, *models.SubscriptionPlan, error) {
	const op = "subscription.Start"

	plan, err := s.repo.PlanByID(ctx, planID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrPlanNotFound)
		}
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if !plan.Active {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrPlanNotFound)
	}

	orderRef := "sub_" + uuid.NewString()
	sub, err := s.repo.UpsertPendingSubscription(ctx, adminID, plan.ID, orderRef)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	s.Invalidate(ctx, adminID)

	s.log.Info("subscription checkout started",
		slog.String("admin_id", adminID),
		slog.String("plan_id", plan.ID),
		slog.String("kiwify_order_id", orderRef))
	return sub, plan, nil
}

// Cancel отменяет подписку администратора.
func (s *Service) Cancel(ctx context.Context, adminID string) error {
	const op = "subscription.Cancel"

	if _, err := s.repo.CancelSubscription(ctx, adminID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNoSubscription)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.Invalidate(ctx, adminID)
	return nil
}

// List возвращает подписки всех администраторов.
func (s *Service) List(ctx context.Context) ([]models.Subscription, error) {
	const op = "subscription.List"

	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// Invalidate сбрасывает кешированную строку подписки.
func (s *Service) Invalidate(ctx context.Context, adminID string) {
	if adminID == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, CacheKey(adminID)); err != nil {
		s.log.Warn("failed to invalidate subscription", slog.String("admin_id", adminID), sl.Err(err))
	}
}
