package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/magabrotheeeer/fitcoach/internal/models"
)

const subscriptionColumns = `id, admin_id, plan_id, status, start_date, end_date,
	kiwify_order_id, created_at, updated_at`

func scanSubscription(row scanner) (*models.Subscription, error) {
	var (
		sub        models.Subscription
		start, end sql.NullTime
	)
	if err := row.Scan(&sub.ID, &sub.AdminID, &sub.PlanID, &sub.Status, &start, &end,
		&sub.KiwifyOrderID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if start.Valid {
		t := start.Time
		sub.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		sub.EndDate = &t
	}
	return &sub, nil
}

// SubscriptionByAdmin возвращает подписку администратора или ErrNotFound.
func (s *Storage) SubscriptionByAdmin(ctx context.Context, adminID string) (*models.Subscription, error) {
	const op = "storage.SubscriptionByAdmin"

	sub, err := scanSubscription(s.DB.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM admin_subscriptions WHERE admin_id = $1`, adminID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// ListSubscriptions возвращает подписки всех администраторов.
func (s *Storage) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptions"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM admin_subscriptions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// ListPlans возвращает активные тарифные планы.
func (s *Storage) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	const op = "storage.ListPlans"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, price_cents, duration_days, kiwify_product_id, active
		 FROM subscription_plans WHERE active ORDER BY price_cents`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	plans := []models.SubscriptionPlan{}
	for rows.Next() {
		var p models.SubscriptionPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.DurationDays, &p.KiwifyProductID, &p.Active); err != nil {
			return nil, wrap(op, err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return plans, nil
}

// PlanByID возвращает план по ID.
func (s *Storage) PlanByID(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	const op = "storage.PlanByID"

	var p models.SubscriptionPlan
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, price_cents, duration_days, kiwify_product_id, active
		 FROM subscription_plans WHERE id = $1`, planID).
		Scan(&p.ID, &p.Name, &p.PriceCents, &p.DurationDays, &p.KiwifyProductID, &p.Active)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &p, nil
}

// UpsertPendingSubscription переводит подписку администратора в pending с новой
// ссылкой на заказ Kiwify. Даты сохраняются, чтобы продление считалось от
// текущего окончания.
func (s *Storage) UpsertPendingSubscription(ctx context.Context, adminID, planID, kiwifyOrderID string) (*models.Subscription, error) {
	const op = "storage.UpsertPendingSubscription"

	query := `INSERT INTO admin_subscriptions (admin_id, plan_id, status, kiwify_order_id)
			  VALUES ($1, $2, 'pending', $3)
			  ON CONFLICT (admin_id) DO UPDATE
			  SET plan_id = EXCLUDED.plan_id,
			      status = CASE WHEN admin_subscriptions.status = 'active'
			                    THEN admin_subscriptions.status ELSE 'pending' END,
			      kiwify_order_id = EXCLUDED.kiwify_order_id,
			      updated_at = now()
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, adminID, planID, kiwifyOrderID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// CancelSubscription отменяет подписку администратора.
func (s *Storage) CancelSubscription(ctx context.Context, adminID string) (int, error) {
	const op = "storage.CancelSubscription"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE admin_subscriptions SET status = 'cancelled', updated_at = now()
		 WHERE admin_id = $1 AND status IN ('pending', 'active')`, adminID)
	if err != nil {
		return 0, wrap(op, err)
	}
	return affected(op, res)
}

// ExpireSubscriptions помечает истёкшие активные подписки как expired
// и возвращает их для рассылки уведомлений.
func (s *Storage) ExpireSubscriptions(ctx context.Context, now time.Time) ([]models.SubscriptionNotice, error) {
	const op = "storage.ExpireSubscriptions"

	query := `UPDATE admin_subscriptions s
			  SET status = 'expired', updated_at = now()
			  FROM admins a JOIN profiles p ON p.id = a.user_id
			  WHERE a.id = s.admin_id AND s.status = 'active' AND s.end_date < $1
			  RETURNING s.id, s.admin_id, p.email, s.end_date`
	return s.queryNotices(ctx, op, query, now)
}

// ClaimExpiringReminders отмечает напоминание отправленным для активных подписок,
// заканчивающихся в (from, to], и возвращает только ещё не отмеченные.
func (s *Storage) ClaimExpiringReminders(ctx context.Context, from, to time.Time) ([]models.SubscriptionNotice, error) {
	const op = "storage.ClaimExpiringReminders"

	query := `UPDATE admin_subscriptions s
			  SET reminded_at = now()
			  FROM admins a JOIN profiles p ON p.id = a.user_id
			  WHERE a.id = s.admin_id AND s.status = 'active' AND s.reminded_at IS NULL
			    AND s.end_date > $1 AND s.end_date <= $2
			  RETURNING s.id, s.admin_id, p.email, s.end_date`
	return s.queryNotices(ctx, op, query, from, to)
}

// ReleaseReminder снимает отметку о напоминании, чтобы следующий проход повторил его.
func (s *Storage) ReleaseReminder(ctx context.Context, subscriptionID string) error {
	const op = "storage.ReleaseReminder"

	if _, err := s.DB.ExecContext(ctx,
		`UPDATE admin_subscriptions SET reminded_at = NULL WHERE id = $1`, subscriptionID); err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *Storage) queryNotices(ctx context.Context, op, query string, args ...any) ([]models.SubscriptionNotice, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.SubscriptionNotice{}
	for rows.Next() {
		var n models.SubscriptionNotice
		if err := rows.Scan(&n.SubscriptionID, &n.AdminID, &n.Email, &n.EndDate); err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}
