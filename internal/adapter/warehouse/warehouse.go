// Package warehouse queries the pre-built analytic tables of the data
// warehouse and returns them as domain tables.
package warehouse

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Table names.
const (
	TableStations  = "weather_stations"
	TableDaily     = "ws_daily_metrics"
	TableRecovery  = "ws_recovery"
	TableBudget    = "budget_deviation"
	TableClearSky  = "clear_sky_days"
	TableInverters = "inverter_metrics"
	TableTurbines  = "turbine_metrics"
)

// Tables lists every analytic table the service reads.
var Tables = []string{
	TableStations, TableDaily, TableRecovery, TableBudget,
	TableClearSky, TableInverters, TableTurbines,
}

// Open connects to the warehouse. In-memory sqlite databases are pinned to a
// single connection so every query sees the same database.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if driver == DriverSQLite && isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}
	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Bootstrap creates the analytic tables when they do not exist. It is meant
// for the local sqlite warehouse and tests.
func Bootstrap(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range strings.Split(stripComments(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap warehouse: %w", err)
		}
	}
	return nil
}

// stripComments drops "--" comment lines so a ';' inside a comment never
// splits a statement.
func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
