package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/magabrotheeeer/fitcoach/internal/models"
)

const orderColumns = `id, user_id, status, payment_method, total_cents, kiwify_order_id, created_at, updated_at`

func scanOrder(row scanner) (*models.Order, error) {
	var o models.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentMethod, &o.TotalCents,
		&o.KiwifyOrderID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder в одной транзакции проверяет наличие товаров, списывает остатки
// и создаёт заказ в статусе pending с позициями по текущим ценам.
// Строки товаров блокируются в порядке id, одинаковом для всех оформлений.
func (s *Storage) CreateOrder(ctx context.Context, userID string, method models.PaymentMethod,
	kiwifyOrderID string, items []models.CartItem) (*models.Order, error) {
	const op = "storage.CreateOrder"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b models.CartItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	var (
		total      int64
		orderItems = make([]models.OrderItem, 0, len(sorted))
	)
	for _, it := range sorted {
		var (
			price  int64
			stock  int
			active bool
		)
		err := tx.QueryRowContext(ctx,
			`SELECT price_cents, stock, active FROM products WHERE id = $1 FOR UPDATE`, it.ProductID).
			Scan(&price, &stock, &active)
		if err != nil {
			return nil, wrap(op, err)
		}
		if !active {
			return nil, fmt.Errorf("%s: product %s: %w", op, it.ProductID, ErrNotFound)
		}
		if stock < it.Quantity {
			return nil, fmt.Errorf("%s: product %s: %w", op, it.ProductID, ErrInsufficientStock)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $1, updated_at = now() WHERE id = $2`,
			it.Quantity, it.ProductID); err != nil {
			return nil, wrap(op, err)
		}
		total += price * int64(it.Quantity)
		orderItems = append(orderItems, models.OrderItem{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPriceCents: price,
		})
	}

	order, err := scanOrder(tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, status, payment_method, total_cents, kiwify_order_id)
		 VALUES ($1, 'pending', $2, $3, $4)
		 RETURNING `+orderColumns,
		userID, string(method), total, kiwifyOrderID))
	if err != nil {
		return nil, wrap(op, err)
	}

	for _, it := range orderItems {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents) VALUES ($1, $2, $3, $4)`,
			order.ID, it.ProductID, it.Quantity, it.UnitPriceCents); err != nil {
			return nil, wrap(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}
	order.Items = orderItems
	return order, nil
}

// ListOrdersByUser возвращает заказы пользователя, новые первыми.
func (s *Storage) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	const op = "storage.ListOrdersByUser"

	return s.listOrders(ctx, op,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListOrders возвращает все заказы с пагинацией и опциональным фильтром по статусу.
func (s *Storage) ListOrders(ctx context.Context, status string, limit, offset int) ([]models.Order, error) {
	const op = "storage.ListOrders"

	return s.listOrders(ctx, op,
		`SELECT `+orderColumns+` FROM orders
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, status, limit, offset)
}

func (s *Storage) listOrders(ctx context.Context, op, query string, args ...any) ([]models.Order, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	_ = rows.Close()

	for i := range result {
		items, err := s.orderItems(ctx, result[i].ID)
		if err != nil {
			return nil, wrap(op, err)
		}
		result[i].Items = items
	}
	return result, nil
}

func (s *Storage) orderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT product_id, quantity, unit_price_cents FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateOrderStatus меняет статус заказа.
func (s *Storage) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (int, error) {
	const op = "storage.UpdateOrderStatus"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`, string(status), id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return affected(op, res)
}
