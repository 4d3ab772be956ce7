package cart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitcoach/internal/cache"
	"github.com/magabrotheeeer/fitcoach/internal/config"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

type fakeProducts struct {
	items       map[string]*models.Product
	invalidated []string
}

func (f *fakeProducts) Product(_ context.Context, id string) (*models.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("catalog.Product: %w", storage.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) InvalidateProducts(_ context.Context, ids ...string) {
	f.invalidated = append(f.invalidated, ids...)
}

type OrdersMock struct{ mock.Mock }

func (m *OrdersMock) CreateOrder(ctx context.Context, userID string, method models.PaymentMethod,
	ref string, items []models.CartItem) (*models.Order, error) {
	args := m.Called(ctx, userID, method, ref, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func newTestService(t *testing.T, orders Orders) (*Service, *fakeProducts, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := &cache.Redis{Db: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	products := &fakeProducts{items: map[string]*models.Product{
		"p-1": {ID: "p-1", Name: "Band", PriceCents: 1500, Stock: 10, Active: true},
		"p-2": {ID: "p-2", Name: "Mat", PriceCents: 8000, Stock: 1, Active: true},
		"p-3": {ID: "p-3", Name: "Old", PriceCents: 100, Stock: 10, Active: false},
	}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, products, orders, rdb), products, mr
}

func TestSetItem(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := newTestService(t, nil)

	c, err := svc.SetItem(ctx, "u-1", "p-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []models.CartItem{{ProductID: "p-1", Quantity: 2}}, c.Items)

	c, err = svc.SetItem(ctx, "u-1", "p-1", 3)
	require.NoError(t, err)
	assert.Equal(t, []models.CartItem{{ProductID: "p-1", Quantity: 3}}, c.Items)

	ttl := mr.TTL("cart:u-1")
	assert.Equal(t, TTL, ttl)

	_, err = svc.SetItem(ctx, "u-1", "p-2", 5)
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, err = svc.SetItem(ctx, "u-1", "p-3", 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.SetItem(ctx, "u-1", "missing", 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.SetItem(ctx, "u-1", "p-1", -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	c, err = svc.SetItem(ctx, "u-1", "p-1", 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.False(t, mr.Exists("cart:u-1"))
}

func TestView_SkipsInactiveAndDeleted(t *testing.T) {
	ctx := context.Background()
	svc, products, _ := newTestService(t, nil)

	_, err := svc.SetItem(ctx, "u-1", "p-1", 2)
	require.NoError(t, err)
	_, err = svc.SetItem(ctx, "u-1", "p-2", 1)
	require.NoError(t, err)

	products.items["p-1"].PriceCents = 2000
	delete(products.items, "p-2")

	view, err := svc.View(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(4000), view.TotalCents)
	assert.Equal(t, 2, view.ItemCount)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart", func(t *testing.T) {
		orders := new(OrdersMock)
		svc, _, _ := newTestService(t, orders)

		_, err := svc.Checkout(ctx, "u-1", models.PaymentPix)
		assert.ErrorIs(t, err, ErrEmptyCart)
		orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates order and clears cart", func(t *testing.T) {
		orders := new(OrdersMock)
		orders.On("CreateOrder", ctx, "u-1", models.PaymentCard,
			mock.MatchedBy(func(ref string) bool { return strings.HasPrefix(ref, "ord_") }),
			[]models.CartItem{{ProductID: "p-1", Quantity: 2}}).
			Return(&models.Order{ID: "o-1", Status: models.OrderPending, TotalCents: 3000}, nil)
		svc, products, mr := newTestService(t, orders)

		_, err := svc.SetItem(ctx, "u-1", "p-1", 2)
		require.NoError(t, err)

		order, err := svc.Checkout(ctx, "u-1", models.PaymentCard)
		require.NoError(t, err)
		assert.Equal(t, "o-1", order.ID)
		assert.False(t, mr.Exists("cart:u-1"))
		assert.Equal(t, []string{"p-1"}, products.invalidated)
	})

	t.Run("stock changed since adding", func(t *testing.T) {
		orders := new(OrdersMock)
		orders.On("CreateOrder", mock.Anything, "u-1", models.PaymentPix, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("storage.CreateOrder: %w", storage.ErrInsufficientStock))
		svc, _, mr := newTestService(t, orders)

		_, err := svc.SetItem(ctx, "u-1", "p-1", 2)
		require.NoError(t, err)

		_, err = svc.Checkout(ctx, "u-1", models.PaymentPix)
		assert.ErrorIs(t, err, ErrOutOfStock)
		assert.True(t, mr.Exists("cart:u-1"))
	})
}

func TestCartExpires(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := newTestService(t, nil)

	_, err := svc.SetItem(ctx, "u-1", "p-1", 1)
	require.NoError(t, err)

	mr.FastForward(TTL + time.Second)

	c, err := svc.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestCartOutlivesCacheTTL_MemoryDriver(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.Cache.Driver = cache.DriverMemory
	cfg.MemorySize = 100
	cfg.Cache.TTL = 20 * time.Millisecond

	mem, err := cache.New(ctx, cfg)
	require.NoError(t, err)

	products := &fakeProducts{items: map[string]*models.Product{
		"p-1": {ID: "p-1", Name: "Band", PriceCents: 1500, Stock: 10, Active: true},
	}}
	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), products, nil, mem)

	_, err = svc.SetItem(ctx, "u-1", "p-1", 2)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	c, err := svc.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartItem{{ProductID: "p-1", Quantity: 2}}, c.Items)
}
