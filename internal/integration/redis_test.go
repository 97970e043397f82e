//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/cache"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

func startRedis(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	store := cache.NewRedis(startRedis(ctx, t), time.Minute, discardLogger())
	require.NoError(t, store.Ping(ctx))

	tbl := domain.NewTable(
		[]string{"station_id", "day_count", "ghi_site_sum"},
		[][]any{{"B01-PCS01-WS01", int64(3), 990.0}, {"B02-WS03", int64(0), nil}},
	)
	sun := cache.Key(warehouse.TableDaily, "SUN1", "aggregates", "a")
	sunOther := cache.Key(warehouse.TableDaily, "SUN1", "aggregates", "b")
	wind := cache.Key(warehouse.TableDaily, "WND1", "aggregates", "a")
	for _, k := range []string{sun, sunOther, wind} {
		store.Set(ctx, k, tbl)
	}

	got, ok := store.Get(ctx, sun)
	require.True(t, ok)
	assert.Equal(t, tbl.Columns, got.Columns)
	n, ok := got.Int(0, "day_count")
	require.True(t, ok)
	assert.Equal(t, int64(3), n)
	v, ok := got.Float(0, "ghi_site_sum")
	require.True(t, ok)
	assert.InDelta(t, 990.0, v, 1e-9)
	assert.Nil(t, got.Value(1, "ghi_site_sum"))

	_, ok = store.Get(ctx, cache.Key(warehouse.TableDaily, "SUN1", "missing"))
	assert.False(t, ok)

	assert.Equal(t, 2, store.InvalidatePrefix(ctx, warehouse.TableDaily+"|SUN1|"))
	_, ok = store.Get(ctx, sun)
	assert.False(t, ok)
	_, ok = store.Get(ctx, wind)
	assert.True(t, ok, "other plants stay cached")
}
