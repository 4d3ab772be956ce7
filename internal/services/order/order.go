// Package order — просмотр заказов и смена их статуса.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// ErrInvalidStatus — статус вне перечисления.
var ErrInvalidStatus = errors.New("invalid order status")

// Repository — хранилище заказов.
type Repository interface {
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListOrders(ctx context.Context, status string, limit, offset int) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (int, error)
}

// Service — заказы.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создаёт Service.
func New(log *slog.Logger, repo Repository) *Service {
	return &Service{repo: repo, log: log}
}

// Mine возвращает заказы пользователя.
func (s *Service) Mine(ctx context.Context, userID string) ([]models.Order, error) {
	const op = "order.Mine"

	list, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// All возвращает все заказы. Пустой status — без фильтра.
func (s *Service) All(ctx context.Context, status string, limit, offset int) ([]models.Order, error) {
	const op = "order.All"

	if status != "" && !models.OrderStatus(status).Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListOrders(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// UpdateStatus меняет статус заказа.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	const op = "order.UpdateStatus"

	st := models.OrderStatus(status)
	if !st.Valid() {
		return fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	if _, err := s.repo.UpdateOrderStatus(ctx, id, st); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("order status updated", slog.String("order_id", id), slog.String("status", status))
	return nil
}
