// Package cart хранит корзину пользователя в кеше и оформляет заказ.
package cart

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

// TTL — сколько корзина живёт без изменений.
const TTL = 7 * 24 * time.Hour

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOutOfStock         = errors.New("not enough stock")
	ErrInvalidQuantity    = errors.New("quantity must not be negative")
	ErrProductUnavailable = errors.New("product is unavailable")
)

// Products читает товары каталога.
type Products interface {
	Product(ctx context.Context, id string) (*models.Product, error)
	InvalidateProducts(ctx context.Context, ids ...string)
}

// Orders создаёт заказ.
type Orders interface {
	CreateOrder(ctx context.Context, userID string, method models.PaymentMethod,
		kiwifyOrderID string, items []models.CartItem) (*models.Order, error)
}

// Cache — хранилище корзин.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service управляет корзинами.
type Service struct {
	products Products
	orders   Orders
	cache    Cache
	log      *slog.Logger
	now      func() time.Time
}

// New создаёт Service.
func New(log *slog.Logger, products Products, orders Orders, cache Cache) *Service {
	return &Service{
		products: products,
		orders:   orders,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

func cacheKey(userID string) string {
	return "cart:" + userID
}

// Get возвращает корзину пользователя. Отсутствующая корзина пуста.
func (s *Service) Get(ctx context.Context, userID string) (*models.Cart, error) {
	const op = "cart.Get"

	c := &models.Cart{UserID: userID, Items: []models.CartItem{}}
	if _, err := s.cache.Get(ctx, cacheKey(userID), c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c *models.Cart) error {
	c.UpdatedAt = s.now()
	if len(c.Items) == 0 {
		return s.cache.Invalidate(ctx, cacheKey(c.UserID))
	}
	return s.cache.Set(ctx, cacheKey(c.UserID), c, TTL)
}

// SetItem задаёт количество товара в корзине. Количество 0 убирает позицию.
func (s *Service) SetItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	const op = "cart.SetItem"

	if quantity < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	p, err := s.products.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProductUnavailable)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !p.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrProductUnavailable)
	}
	if p.Stock < quantity {
		return nil, fmt.Errorf("%s: %w", op, ErrOutOfStock)
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			updated = true
			break
		}
	}
	if !updated {
		c.Items = append(c.Items, models.CartItem{ProductID: productID, Quantity: quantity})
	}

	if err := s.save(ctx, c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// RemoveItem убирает товар из корзины.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	const op = "cart.RemoveItem"

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			items = append(items, it)
		}
	}
	c.Items = items

	if err := s.save(ctx, c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Clear очищает корзину.
func (s *Service) Clear(ctx context.Context, userID string) error {
	const op = "cart.Clear"

	if err := s.cache.Invalidate(ctx, cacheKey(userID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// View считает суммы по текущим ценам. Неактивные и удалённые товары пропускаются.
func (s *Service) View(ctx context.Context, userID string) (*models.CartView, error) {
	const op = "cart.View"

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	view := &models.CartView{Lines: []models.CartLine{}}
	for _, it := range c.Items {
		p, err := s.products.Product(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !p.Active {
			continue
		}
		line := models.CartLine{
			Product:    *p,
			Quantity:   it.Quantity,
			TotalCents: p.PriceCents * int64(it.Quantity),
		}
		view.Lines = append(view.Lines, line)
		view.ItemCount += it.Quantity
		view.TotalCents += line.TotalCents
	}
	return view, nil
}

// Checkout оформляет заказ из корзины и очищает её.
func (s *Service) Checkout(ctx context.Context, userID string, method models.PaymentMethod) (*models.Order, error) {
	const op = "cart.Checkout"

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(c.Items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	order, err := s.orders.CreateOrder(ctx, userID, method, "ord_"+uuid.NewString(), c.Items)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInsufficientStock):
			return nil, fmt.Errorf("%s: %w", op, ErrOutOfStock)
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrProductUnavailable)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	s.products.InvalidateProducts(ctx, ids...)

	if err := s.Clear(ctx, userID); err != nil {
		s.log.Warn("order created but cart was not cleared",
			slog.String("user_id", userID), slog.String("order_id", order.ID), sl.Err(err))
	}
	return order, nil
}
