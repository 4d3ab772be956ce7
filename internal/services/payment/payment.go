// Package payment передаёт уведомления Kiwify процедуре базы и рассылает
// событие об оплате.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/fitcoach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
)

// RPC — процедура обработки вебхука.
type RPC interface {
	HandleKiwifyWebhook(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// Publisher публикует события в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SubscriptionInvalidator сбрасывает кеш подписки администратора.
type SubscriptionInvalidator interface {
	Invalidate(ctx context.Context, adminID string)
}

// Result — ответ процедуры handle_kiwify_webhook.
type Result struct {
	OrderID            string  `json:"order_id"`
	Status             string  `json:"status"`
	OrderUpdated       bool    `json:"order_updated"`
	OrderStatus        *string `json:"order_status"`
	AdminID            *string `json:"admin_id"`
	SubscriptionStatus *string `json:"subscription_status"`
}

// Event — событие об оплате для сервиса уведомлений.
type Event struct {
	OrderID            string    `json:"order_id"`
	Status             string    `json:"status"`
	OrderStatus        string    `json:"order_status,omitempty"`
	AdminID            string    `json:"admin_id,omitempty"`
	SubscriptionStatus string    `json:"subscription_status,omitempty"`
	ReceivedAt         time.Time `json:"received_at"`
}

// Service обрабатывает уведомления об оплате.
type Service struct {
	rpc           RPC
	publisher     Publisher
	subscriptions SubscriptionInvalidator
	log           *slog.Logger
	now           func() time.Time
}

// New создаёт Service.
func New(log *slog.Logger, rpc RPC, publisher Publisher, subscriptions SubscriptionInvalidator) *Service {
	return &Service{
		rpc:           rpc,
		publisher:     publisher,
		subscriptions: subscriptions,
		log:           log,
		now:           time.Now,
	}
}

// HandleKiwifyWebhook передаёт payload процедуре без изменений и возвращает её ответ.
// Публикация события и сброс кеша подписки не влияют на результат.
func (s *Service) HandleKiwifyWebhook(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	const op = "payment.HandleKiwifyWebhook"
	log := s.log.With(sl.Op(op))

	data, err := s.rpc.HandleKiwifyWebhook(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		log.Warn("unexpected procedure result", sl.Err(err))
		return data, nil
	}

	event := Event{
		OrderID:    res.OrderID,
		Status:     res.Status,
		ReceivedAt: s.now().UTC(),
	}
	if res.OrderStatus != nil {
		event.OrderStatus = *res.OrderStatus
	}
	if res.SubscriptionStatus != nil {
		event.SubscriptionStatus = *res.SubscriptionStatus
	}
	if res.AdminID != nil && *res.AdminID != "" {
		event.AdminID = *res.AdminID
		s.subscriptions.Invalidate(ctx, event.AdminID)
	}

	if err := s.publisher.Publish(ctx, rabbitmq.RoutingPayment, event); err != nil {
		log.Error("failed to publish payment event", slog.String("order_id", res.OrderID), sl.Err(err))
	}
	return data, nil
}
