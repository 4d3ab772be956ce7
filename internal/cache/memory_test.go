package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitcoach/internal/config"
)

func TestMemory_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10)

	in := testStruct{Name: "Bia", Age: 41}
	require.NoError(t, c.Set(ctx, "k", in, time.Minute))

	var out testStruct
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)

	require.NoError(t, c.Invalidate(ctx, "k"))
	found, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_PerKeyExpiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", 1, time.Second))
	require.NoError(t, c.Set(ctx, "forever", 2, 0))

	now = now.Add(2 * time.Second)

	var v int
	found, err := c.Get(ctx, "short", &v)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = c.Get(ctx, "forever", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, v)
}

func TestMemory_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10)

	items := []string{"a", "b"}
	require.NoError(t, c.Set(ctx, "list", items, time.Minute))
	items[0] = "mutated"

	var out []string
	_, err := c.Get(ctx, "list", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestMemory_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2)

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	require.NoError(t, c.Set(ctx, "c", 3, 0))

	var v int
	found, err := c.Get(ctx, "a", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNew_Drivers(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Driver = DriverMemory
	cfg.MemorySize = 5
	cfg.Cache.TTL = time.Minute

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	cfg.Cache.Driver = "memcached"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestMemory_EntryTTLNotCappedByCacheTTL(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.Cache.Driver = DriverMemory
	cfg.MemorySize = 5
	cfg.Cache.TTL = 20 * time.Millisecond

	c, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "cart:u-1", 1, time.Hour))

	time.Sleep(60 * time.Millisecond)

	var v int
	found, err := c.Get(ctx, "cart:u-1", &v)
	require.NoError(t, err)
	assert.True(t, found)
}
