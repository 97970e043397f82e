package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

func tableOf(v any) domain.Table {
	return domain.SingleRow([]string{"v"}, []any{v})
}

func TestLRU_BasicGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(3, 0, nil)

	c.Set(ctx, "a", tableOf("A"))
	c.Set(ctx, "b", tableOf("B"))

	got, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "A", got.String(0, "v"))

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestLRU_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, 0, nil)

	c.Set(ctx, "a", tableOf("A"))
	c.Set(ctx, "b", tableOf("B"))
	c.Set(ctx, "c", tableOf("C")) // evicts "a"

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok, "a should have been evicted")
	_, ok = c.Get(ctx, "b")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_AccessPromotesEntry(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, 0, nil)

	c.Set(ctx, "a", tableOf("A"))
	c.Set(ctx, "b", tableOf("B"))
	c.Get(ctx, "a")
	c.Set(ctx, "c", tableOf("C"))

	_, ok := c.Get(ctx, "a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRU_UpdateExisting(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, 0, nil)

	c.Set(ctx, "a", tableOf("A1"))
	c.Set(ctx, "a", tableOf("A2"))

	got, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "A2", got.String(0, "v"))
	assert.Equal(t, 1, c.Len())
}

func TestLRU_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	c := NewLRU(10, time.Minute, clock)

	c.Set(ctx, "a", tableOf("A"))
	clock.Advance(59 * time.Second)
	_, ok := c.Get(ctx, "a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok, "entry expires exactly at its TTL")
	assert.Equal(t, 0, c.Len())
}

func TestLRU_SetRenewsTTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewLRU(10, time.Minute, clock)

	c.Set(ctx, "a", tableOf("A1"))
	clock.Advance(50 * time.Second)
	c.Set(ctx, "a", tableOf("A2"))
	clock.Advance(50 * time.Second)

	got, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "A2", got.String(0, "v"))
}

func TestLRU_InvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(10, 0, nil)

	c.Set(ctx, "ws_daily_metrics|SUN1|x", tableOf(1))
	c.Set(ctx, "ws_daily_metrics|SUN1|y", tableOf(2))
	c.Set(ctx, "ws_daily_metrics|SUN2|x", tableOf(3))
	c.Set(ctx, "ws_recovery|SUN1|x", tableOf(4))

	assert.Equal(t, 2, c.InvalidatePrefix(ctx, "ws_daily_metrics|SUN1|"))
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get(ctx, "ws_daily_metrics|SUN2|x")
	assert.True(t, ok)

	// The list must stay consistent after removals from its middle.
	c.Set(ctx, "z", tableOf(5))
	_, ok = c.Get(ctx, "ws_recovery|SUN1|x")
	assert.True(t, ok)
}

func TestLRU_ZeroSizeHoldsOne(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(0, 0, nil)

	c.Set(ctx, "a", tableOf("A"))
	c.Set(ctx, "b", tableOf("B"))
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(ctx, "b")
	assert.True(t, ok)
}
