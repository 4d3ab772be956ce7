package models

import "time"

// SubscriptionStatus — статус подписки администратора.
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription — подписка администратора на план. У администратора не больше одной.
type Subscription struct {
	ID            string             `json:"id"`
	AdminID       string             `json:"admin_id"`
	PlanID        string             `json:"plan_id"`
	Status        SubscriptionStatus `json:"status"`
	StartDate     *time.Time         `json:"start_date,omitempty"`
	EndDate       *time.Time         `json:"end_date,omitempty"`
	KiwifyOrderID string             `json:"kiwify_order_id"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// IsActive вычисляет активность на момент now. Результат нельзя кешировать:
// он меняется со временем.
func (s *Subscription) IsActive(now time.Time) bool {
	return s != nil &&
		s.Status == SubscriptionActive &&
		s.EndDate != nil &&
		s.EndDate.After(now)
}

// HasActiveSubscription — то же, что sub.IsActive(now), но читается в местах проверки доступа.
func HasActiveSubscription(sub *Subscription, now time.Time) bool {
	return sub.IsActive(now)
}

// SubscriptionPlan — тарифный план для администраторов.
type SubscriptionPlan struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PriceCents      int64  `json:"price_cents"`
	DurationDays    int    `json:"duration_days"`
	KiwifyProductID string `json:"kiwify_product_id"`
	Active          bool   `json:"active"`
}

// SubscriptionNotice — событие о подписке для сервиса уведомлений.
type SubscriptionNotice struct {
	SubscriptionID string    `json:"subscription_id"`
	AdminID        string    `json:"admin_id"`
	Email          string    `json:"email"`
	EndDate        time.Time `json:"end_date"`
}
