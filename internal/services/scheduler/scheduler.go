// Package scheduler — фоновые задачи по подпискам администраторов:
// пометка истёкших и напоминания об окончании.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/fitcoach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/metrics"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// Repository — выборки подписок для фоновых задач.
type Repository interface {
	ExpireSubscriptions(ctx context.Context, now time.Time) ([]models.SubscriptionNotice, error)
	ClaimExpiringReminders(ctx context.Context, from, to time.Time) ([]models.SubscriptionNotice, error)
	ReleaseReminder(ctx context.Context, subscriptionID string) error
}

// Publisher публикует события.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SubscriptionInvalidator сбрасывает кеш подписки.
type SubscriptionInvalidator interface {
	Invalidate(ctx context.Context, adminID string)
}

// Service выполняет задачи по подпискам.
type Service struct {
	repo          Repository
	publisher     Publisher
	subscriptions SubscriptionInvalidator
	metrics       *metrics.Metrics
	within        time.Duration
	log           *slog.Logger
	now           func() time.Time
}

// New создаёт Service. within — горизонт напоминаний об окончании подписки.
func New(log *slog.Logger, repo Repository, publisher Publisher, subscriptions SubscriptionInvalidator,
	m *metrics.Metrics, within time.Duration) *Service {
	return &Service{
		repo:          repo,
		publisher:     publisher,
		subscriptions: subscriptions,
		metrics:       m,
		within:        within,
		log:           log,
		now:           time.Now,
	}
}

// ExpireSubscriptions помечает истёкшие подписки и публикует subscription.expired.
// Доступ от этого не зависит: активность вычисляется по времени.
func (s *Service) ExpireSubscriptions(ctx context.Context) (int, error) {
	const op = "scheduler.ExpireSubscriptions"

	expired, err := s.repo.ExpireSubscriptions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	for _, n := range expired {
		s.subscriptions.Invalidate(ctx, n.AdminID)
		s.publish(ctx, rabbitmq.RoutingSubscriptionExpired, n)
	}
	if s.metrics != nil {
		s.metrics.SubscriptionsExpiredTotal.Add(float64(len(expired)))
	}
	return len(expired), nil
}

// RemindExpiring публикует subscription.expiring для подписок, заканчивающихся
// в пределах горизонта. Каждая подписка получает одно напоминание за период:
// отметка снимается, только если публикация не удалась.
func (s *Service) RemindExpiring(ctx context.Context) (int, error) {
	const op = "scheduler.RemindExpiring"

	now := s.now()
	list, err := s.repo.ClaimExpiringReminders(ctx, now, now.Add(s.within))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	sent := 0
	for _, n := range list {
		if !s.publish(ctx, rabbitmq.RoutingSubscriptionExpiring, n) {
			if err := s.repo.ReleaseReminder(ctx, n.SubscriptionID); err != nil {
				s.log.Error("failed to release reminder",
					slog.String("subscription_id", n.SubscriptionID), sl.Err(err))
			}
			continue
		}
		sent++
	}
	if s.metrics != nil {
		s.metrics.SubscriptionRemindersTotal.Add(float64(sent))
	}
	return sent, nil
}

func (s *Service) publish(ctx context.Context, key string, n models.SubscriptionNotice) bool {
	if err := s.publisher.Publish(ctx, key, n); err != nil {
		s.log.Error("failed to publish message",
			slog.String("routing_key", key), slog.String("subscription_id", n.SubscriptionID), sl.Err(err))
		if s.metrics != nil {
			s.metrics.EventPublishFailuresTotal.WithLabelValues(key).Inc()
		}
		return false
	}
	return true
}

// RunOnce выполняет обе задачи и логирует итог.
func (s *Service) RunOnce(ctx context.Context) {
	expired, err := s.ExpireSubscriptions(ctx)
	if err != nil {
		s.log.Error("failed to expire subscriptions", sl.Err(err))
	} else {
		s.log.Info("expired subscriptions", slog.Int("count", expired))
	}

	reminded, err := s.RemindExpiring(ctx)
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
	} else {
		s.log.Info("expiring subscription reminders sent", slog.Int("count", reminded))
	}
}

// Schedule регистрирует RunOnce в cron по расписанию spec.
func (s *Service) Schedule(ctx context.Context, c *cron.Cron, spec string) error {
	const op = "scheduler.Schedule"

	if _, err := c.AddFunc(spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
