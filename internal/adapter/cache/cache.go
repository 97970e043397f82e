// Package cache keeps warehouse query results so repeated dashboard views do
// not re-scan the analytic tables.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/observability"
)

// Store holds tables by key. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (domain.Table, bool)
	Set(ctx context.Context, key string, t domain.Table)
	InvalidatePrefix(ctx context.Context, prefix string) int
}

// dependents maps a refreshed table to the key namespaces whose results read
// it. Aggregates join stations and clear-sky days into the daily metrics.
var dependents = map[string][]string{
	warehouse.TableStations: {warehouse.TableDaily},
	warehouse.TableClearSky: {warehouse.TableClearSky, warehouse.TableDaily},
}

// CachedRepository decorates a warehouse.Reader with a Store. Only non-empty
// results are cached so a table that is still loading is re-read next time.
type CachedRepository struct {
	inner   warehouse.Reader
	store   Store
	metrics *observability.Metrics
}

// NewCachedRepository wraps inner.
func NewCachedRepository(inner warehouse.Reader, store Store, metrics *observability.Metrics) *CachedRepository {
	return &CachedRepository{inner: inner, store: store, metrics: metrics}
}

// Key builds "<table>|<plant>|<digest>" where the digest covers every other
// input of the query.
func Key(table, plant string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return table + "|" + plant + "|" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Invalidate drops cached results that read the refreshed table, for one
// plant or for all plants when plant is empty.
func (c *CachedRepository) Invalidate(ctx context.Context, table, plant string) int {
	namespaces, ok := dependents[table]
	if !ok {
		namespaces = []string{table}
	}
	plant = strings.ToUpper(strings.TrimSpace(plant))
	n := 0
	for _, ns := range namespaces {
		prefix := ns + "|"
		if plant != "" {
			prefix += plant + "|"
		}
		n += c.store.InvalidatePrefix(ctx, prefix)
	}
	if c.metrics != nil {
		c.metrics.CacheInvalidated.Add(float64(n))
	}
	return n
}

func (c *CachedRepository) cached(ctx context.Context, table, key string, load func() (domain.Table, error)) (domain.Table, error) {
	if t, ok := c.store.Get(ctx, key); ok {
		c.count(table, "hit")
		return t, nil
	}
	c.count(table, "miss")
	t, err := load()
	if err != nil {
		return t, err
	}
	if !t.Empty() {
		c.store.Set(ctx, key, t)
	}
	return t, nil
}

func (c *CachedRepository) count(table, result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(table, result).Inc()
	}
}

func columnNames(cols []domain.MetricColumn) string {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return strings.Join(names, ",")
}

func boolPart(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Stations is not cached; the station list is small and read once per view.
func (c *CachedRepository) Stations(ctx context.Context, plant string) ([]domain.Station, error) {
	return c.inner.Stations(ctx, plant)
}

func (c *CachedRepository) StationAggregates(ctx context.Context, q domain.Query, cols []domain.MetricColumn, clearSkyOnly bool) (domain.Table, error) {
	key := Key(warehouse.TableDaily, q.Plant, "aggregates", q.CacheKey(), columnNames(cols), boolPart(clearSkyOnly))
	return c.cached(ctx, warehouse.TableDaily, key, func() (domain.Table, error) {
		return c.inner.StationAggregates(ctx, q, cols, clearSkyOnly)
	})
}

func (c *CachedRepository) DailySeries(ctx context.Context, q domain.Query, stationID string, cols []domain.MetricColumn) (domain.Table, error) {
	key := Key(warehouse.TableDaily, q.Plant, "daily", q.CacheKey(), stationID, columnNames(cols))
	return c.cached(ctx, warehouse.TableDaily, key, func() (domain.Table, error) {
		return c.inner.DailySeries(ctx, q, stationID, cols)
	})
}

func (c *CachedRepository) Recovery(ctx context.Context, q domain.Query) (domain.Table, error) {
	key := Key(warehouse.TableRecovery, q.Plant, "recovery", q.FromKey(), q.ToKey())
	return c.cached(ctx, warehouse.TableRecovery, key, func() (domain.Table, error) {
		return c.inner.Recovery(ctx, q)
	})
}

func (c *CachedRepository) BudgetDeviation(ctx context.Context, q domain.Query) (domain.Table, error) {
	key := Key(warehouse.TableBudget, q.Plant, "budget", q.FromMonth(), q.ToMonth())
	return c.cached(ctx, warehouse.TableBudget, key, func() (domain.Table, error) {
		return c.inner.BudgetDeviation(ctx, q)
	})
}

func (c *CachedRepository) ClearSky(ctx context.Context, q domain.Query) (domain.Table, error) {
	key := Key(warehouse.TableClearSky, q.Plant, "clearsky", q.FromKey(), q.ToKey(), q.CacheKey())
	return c.cached(ctx, warehouse.TableClearSky, key, func() (domain.Table, error) {
		return c.inner.ClearSky(ctx, q)
	})
}

func (c *CachedRepository) EquipmentAvailability(ctx context.Context, q domain.Query, tech domain.Technology) (domain.Table, error) {
	table := equipmentTable(tech)
	key := Key(table, q.Plant, "availability", q.FromKey(), q.ToKey())
	return c.cached(ctx, table, key, func() (domain.Table, error) {
		return c.inner.EquipmentAvailability(ctx, q, tech)
	})
}

// EquipmentColumns is not cached; it reads no rows.
func (c *CachedRepository) EquipmentColumns(ctx context.Context, tech domain.Technology) ([]domain.MetricColumn, error) {
	return c.inner.EquipmentColumns(ctx, tech)
}

func (c *CachedRepository) EquipmentSummary(ctx context.Context, q domain.Query, tech domain.Technology) (domain.Table, error) {
	table := equipmentTable(tech)
	key := Key(table, q.Plant, "summary", q.CacheKey())
	return c.cached(ctx, table, key, func() (domain.Table, error) {
		return c.inner.EquipmentSummary(ctx, q, tech)
	})
}

// Ping passes through to the warehouse.
func (c *CachedRepository) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

func equipmentTable(tech domain.Technology) string {
	if tech == domain.Wind {
		return warehouse.TableTurbines
	}
	return warehouse.TableInverters
}
