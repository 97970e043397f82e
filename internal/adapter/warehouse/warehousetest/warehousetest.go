// Package warehousetest provides an in-memory sqlite warehouse seeded with a
// small, hand-checked fixture for repository and service tests.
//
// Plant SUN1 (solar), June 1-3 2024:
//
//	B01-PCS01-WS01  GHI site 330 / ref 300 (+10%), clear-sky days 06-01, 06-03
//	B01-PCS02-WS02  GHI site 95 / ref 100 per day (-5%), no site reading on
//	                06-02, all days clear
//	B02-WS03        GHI site 300, no reference, daily deviation -2%
//	B02-PCS03-WS04  registered, no daily rows
//
// Plant WND1 (wind) has one station B01-WS01 with wind speed 8 vs 8 m/s.
package warehousetest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse"
)

// Days covered by the fixture.
const (
	From = "2024-06-01"
	To   = "2024-06-03"
)

// Open returns a bootstrapped and seeded in-memory warehouse, closed when the
// test ends.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := warehouse.Open(ctx, warehouse.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, warehouse.Bootstrap(ctx, db))
	for _, stmt := range fixture {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

var fixture = []string{
	`INSERT INTO weather_stations (station_id, plant, block, pcs, ws, pi_tag, label, technology, lat, lon) VALUES
		('B01-PCS01-WS01', 'SUN1', 'B01', 'PCS01', 'WS01', 'SUN1-B01-PCS01-WS01-GHI', 'B01 / PCS01 / WS01', 'solar', 35.1, -115.2),
		('B01-PCS02-WS02', 'SUN1', 'B01', 'PCS02', 'WS02', 'SUN1-B01-PCS02-WS02-GHI', 'B01 / PCS02 / WS02', 'solar', 35.1, -115.3),
		('B02-WS03',       'SUN1', 'B02', '',      'WS03', 'SUN1-B02-WS03-GHI',       'B02 / WS03',         'solar', NULL, NULL),
		('B02-PCS03-WS04', 'SUN1', 'B02', 'PCS03', 'WS04', 'SUN1-B02-PCS03-WS04-GHI', 'B02 / PCS03 / WS04', 'solar', NULL, NULL),
		('B01-WS01',       'WND1', 'B01', '',      'WS01', 'WND1-B01-WS01-WSPD',      'B01 / WS01',         'wind',  41.0, -100.0)`,

	`INSERT INTO ws_daily_metrics (station_id, plant, block, day, ghi_site_sum, ghi_ref_sum, ghi_diff_pct, temp_site_avg, temp_ref_avg, temp_diff_avg) VALUES
		('B01-PCS01-WS01', 'SUN1', 'B01', '2024-06-01', 100, 100, 0,  25, 24, 1),
		('B01-PCS01-WS01', 'SUN1', 'B01', '2024-06-02', 110, 100, 10, 26, 24, 2),
		('B01-PCS01-WS01', 'SUN1', 'B01', '2024-06-03', 120, 100, 20, 27, 24, 3),
		('B01-PCS02-WS02', 'SUN1', 'B01', '2024-06-01', 95, 100, -5, NULL, NULL, NULL),
		('B01-PCS02-WS02', 'SUN1', 'B01', '2024-06-02', NULL, 100, NULL, NULL, NULL, NULL),
		('B01-PCS02-WS02', 'SUN1', 'B01', '2024-06-03', 95, 100, -5, NULL, NULL, NULL),
		('B02-WS03',       'SUN1', 'B02', '2024-06-01', 100, NULL, -2, NULL, NULL, NULL),
		('B02-WS03',       'SUN1', 'B02', '2024-06-02', 100, NULL, -2, NULL, NULL, NULL),
		('B02-WS03',       'SUN1', 'B02', '2024-06-03', 100, NULL, -2, NULL, NULL, NULL),
		('B01-PCS01-WS01', 'SUN1', 'B01', '2024-05-31', 999, 1, 99, NULL, NULL, NULL)`,

	`INSERT INTO ws_daily_metrics (station_id, plant, block, day, wind_speed_site_avg, wind_speed_ref_avg, wind_speed_diff_pct) VALUES
		('B01-WS01', 'WND1', 'B01', '2024-06-01', 7, 8, -12.5),
		('B01-WS01', 'WND1', 'B01', '2024-06-02', 8, 8, 0),
		('B01-WS01', 'WND1', 'B01', '2024-06-03', 9, 8, 12.5)`,

	`INSERT INTO clear_sky_days (station_id, plant, day, csr_ratio) VALUES
		('B01-PCS01-WS01', 'SUN1', '2024-06-01', 0.9),
		('B01-PCS01-WS01', 'SUN1', '2024-06-02', 0.5),
		('B01-PCS01-WS01', 'SUN1', '2024-06-03', 0.95),
		('B01-PCS02-WS02', 'SUN1', '2024-06-01', 0.86),
		('B01-PCS02-WS02', 'SUN1', '2024-06-02', 0.86),
		('B01-PCS02-WS02', 'SUN1', '2024-06-03', 0.86)`,

	`INSERT INTO ws_recovery (station_id, plant, block, day, lost_kwh_sum, recovered_kwh_sum) VALUES
		('B01-PCS01-WS01', 'SUN1', 'B01', '2024-06-01', 10, 5),
		('B01-PCS01-WS01', 'SUN1', 'B01', '2024-06-02', 10, 5),
		('B01-PCS01-WS01', 'SUN1', 'B01', '2024-06-03', 0, 0),
		('B01-PCS02-WS02', 'SUN1', 'B01', '2024-06-01', 0, 0)`,

	`INSERT INTO budget_deviation (plant, block, month, budget_kwh_sum, actual_kwh_sum) VALUES
		('SUN1', 'B01', '2024-06', 1000, 950),
		('SUN1', 'ALL', '2024-06', 2000, 2100),
		('SUN1', 'ALL', '2024-07', 5000, 1)`,

	`INSERT INTO inverter_metrics (plant, block, pcs, day, energy_sum, availability_pct, pr_pct) VALUES
		('SUN1', 'B01', 'PCS01', '2024-06-01', 500, 99, 80),
		('SUN1', 'B01', 'PCS01', '2024-06-02', 500, 98, 80),
		('SUN1', 'B01', 'PCS01', '2024-06-03', 500, 100, 80),
		('SUN1', 'B01', 'PCS02', '2024-06-01', 400, 95, 78),
		('SUN1', 'B01', 'PCS02', '2024-06-02', 400, 95, 78),
		('SUN1', 'B01', 'PCS02', '2024-06-03', 400, 95, 78),
		('SUN1', 'B02', 'PCS03', '2024-06-01', 450, 90, 79),
		('SUN1', 'B02', 'PCS03', '2024-06-02', 450, 90, 79),
		('SUN1', 'B02', 'PCS03', '2024-06-03', 450, 90, 79)`,

	`INSERT INTO turbine_metrics (plant, block, turbine, day, energy_sum, availability_pct, wind_speed_avg) VALUES
		('WND1', 'B01', 'T01', '2024-06-01', 1000, 97, 7),
		('WND1', 'B01', 'T01', '2024-06-02', 1000, 97, 8),
		('WND1', 'B01', 'T01', '2024-06-03', 1000, 97, 9)`,
}
