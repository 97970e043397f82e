package warehouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse/warehousetest"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/observability"
)

func newRepo(t *testing.T) (*warehouse.Repository, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	return warehouse.NewRepository(warehousetest.Open(t), m, 5*time.Second), m
}

func fixtureQuery(t *testing.T) domain.Query {
	t.Helper()
	from, err := domain.ParseDay(warehousetest.From)
	require.NoError(t, err)
	to, err := domain.ParseDay(warehousetest.To)
	require.NoError(t, err)
	q := domain.Query{Plant: "sun1", From: from, To: to, Metric: "ghi"}
	require.NoError(t, q.Validate())
	return q
}

func rowOf(t *testing.T, tbl domain.Table, col, key string) int {
	t.Helper()
	for i := 0; i < tbl.Len(); i++ {
		if tbl.String(i, col) == key {
			return i
		}
	}
	t.Fatalf("no row with %s=%s in %v", col, key, tbl.Rows)
	return -1
}

func ghiColumns() []domain.MetricColumn {
	return []domain.MetricColumn{
		domain.MustMetricColumn("ghi_site_sum"),
		domain.MustMetricColumn("ghi_ref_sum"),
		domain.MustMetricColumn("ghi_diff_pct"),
	}
}

func TestStations(t *testing.T) {
	repo, _ := newRepo(t)

	stations, err := repo.Stations(context.Background(), "sun1")
	require.NoError(t, err)
	require.Len(t, stations, 4)

	assert.Equal(t, "B01-PCS01-WS01", stations[0].ID)
	assert.Equal(t, domain.Solar, stations[0].Technology)
	require.NotNil(t, stations[0].Lat)
	assert.InDelta(t, 35.1, *stations[0].Lat, 1e-9)
	assert.Equal(t, "B02-WS03", stations[3].ID)
	assert.Empty(t, stations[3].PCS)
	assert.Nil(t, stations[3].Lat)
}

func TestStations_UnknownPlant(t *testing.T) {
	repo, _ := newRepo(t)

	stations, err := repo.Stations(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Empty(t, stations)
}

func TestStationAggregates_AllDays(t *testing.T) {
	repo, m := newRepo(t)

	tbl, err := repo.StationAggregates(context.Background(), fixtureQuery(t), ghiColumns(), false)
	require.NoError(t, err)
	require.Equal(t, 4, tbl.Len())
	assert.Equal(t, []string{"station_id", "pi_tag", "label", "block", "pcs", "day_count", "ghi_site_sum", "ghi_ref_sum", "ghi_diff_pct"}, tbl.Columns)

	ws1 := rowOf(t, tbl, "station_id", "B01-PCS01-WS01")
	n, _ := tbl.Int(ws1, "day_count")
	assert.Equal(t, int64(3), n, "the 05-31 row is outside the range")
	site, ok := tbl.Float(ws1, "ghi_site_sum")
	require.True(t, ok)
	assert.InDelta(t, 330, site, 1e-9)
	diff, _ := tbl.Float(ws1, "ghi_diff_pct")
	assert.InDelta(t, 10, diff, 1e-9)

	ws3 := rowOf(t, tbl, "station_id", "B02-WS03")
	_, ok = tbl.Float(ws3, "ghi_ref_sum")
	assert.False(t, ok, "reference is missing")

	ws4 := rowOf(t, tbl, "station_id", "B02-PCS03-WS04")
	n, _ = tbl.Int(ws4, "day_count")
	assert.Equal(t, int64(0), n)
	assert.Nil(t, tbl.Value(ws4, "ghi_site_sum"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.WarehouseQueries.WithLabelValues(warehouse.TableDaily, "success")), 0)
}

func TestStationAggregates_ClearSkyOnly(t *testing.T) {
	repo, _ := newRepo(t)

	tbl, err := repo.StationAggregates(context.Background(), fixtureQuery(t), ghiColumns(), true)
	require.NoError(t, err)

	ws1 := rowOf(t, tbl, "station_id", "B01-PCS01-WS01")
	n, _ := tbl.Int(ws1, "day_count")
	assert.Equal(t, int64(2), n)
	site, _ := tbl.Float(ws1, "ghi_site_sum")
	assert.InDelta(t, 220, site, 1e-9)

	ws3 := rowOf(t, tbl, "station_id", "B02-WS03")
	n, _ = tbl.Int(ws3, "day_count")
	assert.Equal(t, int64(0), n, "no clear-sky records")
}

func TestStationAggregates_BlockAndTechnologyFilter(t *testing.T) {
	repo, _ := newRepo(t)
	q := fixtureQuery(t)
	q.Blocks = []string{"B02"}
	q.Technology = domain.Solar

	tbl, err := repo.StationAggregates(context.Background(), q, ghiColumns(), false)
	require.NoError(t, err)
	assert.Equal(t, []any{"B02-PCS03-WS04", "B02-WS03"}, tbl.Column("station_id"))

	q.Technology = domain.Wind
	tbl, err = repo.StationAggregates(context.Background(), q, ghiColumns(), false)
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
}

func TestStationAggregates_RejectsUnsafeColumn(t *testing.T) {
	repo, m := newRepo(t)

	bad := []domain.MetricColumn{{Name: "ghi_site_sum; DROP TABLE x", Stat: "sum"}}
	_, err := repo.StationAggregates(context.Background(), fixtureQuery(t), bad, false)
	require.ErrorIs(t, err, warehouse.ErrInvalidColumn)
	assert.Equal(t, 0, testutil.CollectAndCount(m.WarehouseQueries))
}

func TestStationAggregates_UnknownColumnIsQueryError(t *testing.T) {
	repo, m := newRepo(t)

	_, err := repo.StationAggregates(context.Background(), fixtureQuery(t), []domain.MetricColumn{domain.MustMetricColumn("nope_site_sum")}, false)
	require.Error(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WarehouseQueries.WithLabelValues(warehouse.TableDaily, "error")), 0)
}

func TestDailySeries(t *testing.T) {
	repo, _ := newRepo(t)

	tbl, err := repo.DailySeries(context.Background(), fixtureQuery(t), "B01-PCS01-WS01", ghiColumns())
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-06-01", "2024-06-02", "2024-06-03"}, tbl.Column("day"))
	assert.Equal(t, []any{int64(1), int64(0), int64(1)}, tbl.Column("clear_sky"))
	assert.Equal(t, []any{100.0, 110.0, 120.0}, tbl.Column("ghi_site_sum"))
}

func TestRecovery(t *testing.T) {
	repo, _ := newRepo(t)

	tbl, err := repo.Recovery(context.Background(), fixtureQuery(t))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	ws1 := rowOf(t, tbl, "station_id", "B01-PCS01-WS01")
	lost, _ := tbl.Float(ws1, "lost_kwh_sum")
	rec, _ := tbl.Float(ws1, "recovered_kwh_sum")
	assert.InDelta(t, 20, lost, 1e-9)
	assert.InDelta(t, 10, rec, 1e-9)
}

func TestBudgetDeviation_MonthsOverlappingRange(t *testing.T) {
	repo, _ := newRepo(t)

	tbl, err := repo.BudgetDeviation(context.Background(), fixtureQuery(t))
	require.NoError(t, err)
	assert.Equal(t, []any{"ALL", "B01"}, tbl.Column("block"))

	all := rowOf(t, tbl, "block", domain.PlantLevel)
	budget, _ := tbl.Float(all, "budget_kwh_sum")
	assert.InDelta(t, 2000, budget, 1e-9, "July is outside the range")
}

func TestClearSky_IncludesPlantLevel(t *testing.T) {
	repo, _ := newRepo(t)

	tbl, err := repo.ClearSky(context.Background(), fixtureQuery(t))
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())

	ws1 := rowOf(t, tbl, "station_id", "B01-PCS01-WS01")
	csr, _ := tbl.Float(ws1, "csr_ratio")
	assert.InDelta(t, 0.78333, csr, 1e-4)
	n, _ := tbl.Int(ws1, "clear_day_cnt")
	assert.Equal(t, int64(2), n)

	all := rowOf(t, tbl, "station_id", domain.PlantLevel)
	n, _ = tbl.Int(all, "clear_day_cnt")
	assert.Equal(t, int64(5), n)
	csr, _ = tbl.Float(all, "csr_ratio")
	assert.InDelta(t, 0.82167, csr, 1e-4)
}

func TestEquipmentAvailability_Solar(t *testing.T) {
	repo, _ := newRepo(t)

	tbl, err := repo.EquipmentAvailability(context.Background(), fixtureQuery(t), domain.Solar)
	require.NoError(t, err)
	require.Equal(t, 5, tbl.Len())

	assert.Equal(t, "B01", tbl.String(0, "block"))
	assert.Equal(t, "", tbl.String(0, "pcs"), "block-level rows sort before their pcs rows")
	avail, _ := tbl.Float(0, "availability_pct")
	assert.InDelta(t, 97, avail, 1e-9)

	pcs1 := rowOf(t, tbl, "pcs", "PCS01")
	avail, _ = tbl.Float(pcs1, "availability_pct")
	assert.InDelta(t, 99, avail, 1e-9)
}

func TestEquipmentAvailability_Wind(t *testing.T) {
	repo, _ := newRepo(t)
	q := fixtureQuery(t)
	q.Plant = "WND1"

	tbl, err := repo.EquipmentAvailability(context.Background(), q, domain.Wind)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	avail, _ := tbl.Float(0, "availability_pct")
	assert.InDelta(t, 97, avail, 1e-9)
}

func TestEquipmentColumns(t *testing.T) {
	repo, _ := newRepo(t)

	cols, err := repo.EquipmentColumns(context.Background(), domain.Solar)
	require.NoError(t, err)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"energy_sum", "availability_pct", "pr_pct"}, names)

	cols, err = repo.EquipmentColumns(context.Background(), domain.Wind)
	require.NoError(t, err)
	assert.Len(t, cols, 3)

	_, err = repo.EquipmentColumns(context.Background(), domain.Technology("hydro"))
	require.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestEquipmentSummary(t *testing.T) {
	repo, _ := newRepo(t)

	tbl, err := repo.EquipmentSummary(context.Background(), fixtureQuery(t), domain.Solar)
	require.NoError(t, err)
	assert.Equal(t, []string{"block", "inverter_cnt", "energy_sum", "availability_pct", "pr_pct"}, tbl.Columns)
	assert.Equal(t, []any{"B01", "B02", "ALL"}, tbl.Column("block"))

	n, _ := tbl.Int(0, "inverter_cnt")
	assert.Equal(t, int64(2), n)
	energy, _ := tbl.Float(0, "energy_sum")
	assert.InDelta(t, 2700, energy, 1e-9)

	n, _ = tbl.Int(2, "inverter_cnt")
	assert.Equal(t, int64(3), n)
	energy, _ = tbl.Float(2, "energy_sum")
	assert.InDelta(t, 4050, energy, 1e-9)
	pr, _ := tbl.Float(2, "pr_pct")
	assert.InDelta(t, 79, pr, 1e-9)
}

func TestEquipmentSummary_NoData(t *testing.T) {
	repo, _ := newRepo(t)
	q := fixtureQuery(t)
	q.Plant = "NOPE"

	tbl, err := repo.EquipmentSummary(context.Background(), q, domain.Solar)
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
	assert.NotEmpty(t, tbl.Columns)
}

func TestPing(t *testing.T) {
	repo, _ := newRepo(t)
	require.NoError(t, repo.Ping(context.Background()))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := warehouse.Open(context.Background(), "oracle", "x")
	require.Error(t, err)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	db, err := warehouse.Open(ctx, warehouse.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, warehouse.Bootstrap(ctx, db))
	require.NoError(t, warehouse.Bootstrap(ctx, db), "idempotent")

	for _, table := range warehouse.Tables {
		var n int
		require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table), table)
		assert.Zero(t, n, table)
	}
}

func TestStationAggregates_PairsSiteAndReferenceDays(t *testing.T) {
	repo, _ := newRepo(t)

	tbl, err := repo.StationAggregates(context.Background(), fixtureQuery(t), ghiColumns(), false)
	require.NoError(t, err)

	ws2 := rowOf(t, tbl, "station_id", "B01-PCS02-WS02")
	n, _ := tbl.Int(ws2, "day_count")
	assert.Equal(t, int64(3), n)
	site, ok := tbl.Float(ws2, "ghi_site_sum")
	require.True(t, ok)
	assert.InDelta(t, 190, site, 1e-9)
	ref, ok := tbl.Float(ws2, "ghi_ref_sum")
	require.True(t, ok)
	assert.InDelta(t, 200, ref, 1e-9, "06-02 has no site reading")

	ws3 := rowOf(t, tbl, "station_id", "B02-WS03")
	assert.Nil(t, tbl.Value(ws3, "ghi_site_sum"), "no day with both readings")
	diff, ok := tbl.Float(ws3, "ghi_diff_pct")
	require.True(t, ok)
	assert.InDelta(t, -2, diff, 1e-9)

	// Requested alone, a side aggregates every day it has.
	tbl, err = repo.StationAggregates(context.Background(), fixtureQuery(t), []domain.MetricColumn{domain.MustMetricColumn("ghi_ref_sum")}, false)
	require.NoError(t, err)
	ref, _ = tbl.Float(rowOf(t, tbl, "station_id", "B01-PCS02-WS02"), "ghi_ref_sum")
	assert.InDelta(t, 300, ref, 1e-9)
}
