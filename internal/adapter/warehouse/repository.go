package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/observability"
)

// ErrInvalidColumn is returned when a column name cannot be safely
// interpolated into SQL.
var ErrInvalidColumn = errors.New("invalid column name")

// Reader is the read-only query surface of the warehouse.
type Reader interface {
	Stations(ctx context.Context, plant string) ([]domain.Station, error)
	StationAggregates(ctx context.Context, q domain.Query, cols []domain.MetricColumn, clearSkyOnly bool) (domain.Table, error)
	DailySeries(ctx context.Context, q domain.Query, stationID string, cols []domain.MetricColumn) (domain.Table, error)
	Recovery(ctx context.Context, q domain.Query) (domain.Table, error)
	BudgetDeviation(ctx context.Context, q domain.Query) (domain.Table, error)
	ClearSky(ctx context.Context, q domain.Query) (domain.Table, error)
	EquipmentAvailability(ctx context.Context, q domain.Query, tech domain.Technology) (domain.Table, error)
	EquipmentColumns(ctx context.Context, tech domain.Technology) ([]domain.MetricColumn, error)
	EquipmentSummary(ctx context.Context, q domain.Query, tech domain.Technology) (domain.Table, error)
	Ping(ctx context.Context) error
}

// Repository implements Reader on top of a sqlx connection.
type Repository struct {
	db      *sqlx.DB
	metrics *observability.Metrics
	timeout time.Duration
}

// NewRepository wraps db. A zero timeout leaves query deadlines to the caller.
func NewRepository(db *sqlx.DB, metrics *observability.Metrics, timeout time.Duration) *Repository {
	return &Repository{db: db, metrics: metrics, timeout: timeout}
}

// Ping checks warehouse connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.PingContext(ctx)
}

// Stations lists the weather stations of a plant ordered by station id.
func (r *Repository) Stations(ctx context.Context, plant string) ([]domain.Station, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var stations []domain.Station
	err := r.db.SelectContext(ctx, &stations, r.db.Rebind(`
		SELECT station_id, plant, block, pcs, ws, pi_tag, label, technology, lat, lon
		FROM weather_stations
		WHERE plant = ?
		ORDER BY station_id`), strings.ToUpper(strings.TrimSpace(plant)))
	r.observe(TableStations, start, err)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", TableStations, err)
	}
	return stations, nil
}

// StationAggregates returns one row per station of the plant with
// station_id, pi_tag, label, block, pcs, day_count and every requested
// column aggregated over the range by its naming rule. Stations without
// data in the range are still listed with NULL aggregates. When both the
// site and the reference column of a measure are requested, each only
// aggregates days where both are present. With clearSkyOnly, only days at or
// above the query's clear-sky threshold count.
func (r *Repository) StationAggregates(ctx context.Context, q domain.Query, cols []domain.MetricColumn, clearSkyOnly bool) (domain.Table, error) {
	if err := validateColumns(cols); err != nil {
		return domain.Table{}, err
	}

	requested := make(map[string]bool, len(cols))
	for _, c := range cols {
		requested[c.Name] = true
	}
	selects := []string{"s.station_id", "s.pi_tag", "s.label", "s.block", "s.pcs", "COUNT(d.day) AS day_count"}
	for _, c := range cols {
		if other, ok := c.Counterpart(); ok && requested[other.Name] {
			selects = append(selects, c.PairedSQL("d", other))
			continue
		}
		selects = append(selects, c.SQL("d"))
	}

	var b strings.Builder
	args := []any{}
	b.WriteString("SELECT " + strings.Join(selects, ", ") + "\nFROM weather_stations s\nLEFT JOIN (\n\tSELECT m.* FROM ws_daily_metrics m\n")
	if clearSkyOnly {
		b.WriteString("\tJOIN clear_sky_days c ON c.plant = m.plant AND c.station_id = m.station_id AND c.day = m.day\n")
	}
	b.WriteString("\tWHERE m.plant = ? AND m.day >= ? AND m.day <= ?\n")
	args = append(args, q.Plant, q.FromKey(), q.ToKey())
	if clearSkyOnly {
		b.WriteString("\tAND c.csr_ratio >= ?\n")
		args = append(args, q.ClearSkyThreshold)
	}
	b.WriteString(") d ON d.station_id = s.station_id\nWHERE s.plant = ?\n")
	args = append(args, q.Plant)
	if q.Technology != "" {
		b.WriteString("AND s.technology = ?\n")
		args = append(args, string(q.Technology))
	}
	if len(q.Blocks) > 0 {
		b.WriteString("AND s.block IN (?)\n")
		args = append(args, q.Blocks)
	}
	b.WriteString("GROUP BY s.station_id, s.pi_tag, s.label, s.block, s.pcs\nORDER BY s.station_id")

	return r.queryTable(ctx, TableDaily, b.String(), args...)
}

// DailySeries returns per-day rows for one station: day, the requested
// columns and a clear_sky flag (1 when the day's CSR reaches the threshold).
func (r *Repository) DailySeries(ctx context.Context, q domain.Query, stationID string, cols []domain.MetricColumn) (domain.Table, error) {
	if err := validateColumns(cols); err != nil {
		return domain.Table{}, err
	}
	selects := []string{"m.day"}
	for _, c := range cols {
		selects = append(selects, "m."+c.Name)
	}
	selects = append(selects, "CASE WHEN c.csr_ratio >= ? THEN 1 ELSE 0 END AS clear_sky")

	query := "SELECT " + strings.Join(selects, ", ") + `
		FROM ws_daily_metrics m
		LEFT JOIN clear_sky_days c ON c.plant = m.plant AND c.station_id = m.station_id AND c.day = m.day
		WHERE m.plant = ? AND m.station_id = ? AND m.day >= ? AND m.day <= ?
		ORDER BY m.day`
	return r.queryTable(ctx, TableDaily, query, q.ClearSkyThreshold, q.Plant, stationID, q.FromKey(), q.ToKey())
}

// Recovery returns lost and recovered energy per station over the range.
func (r *Repository) Recovery(ctx context.Context, q domain.Query) (domain.Table, error) {
	return r.queryTable(ctx, TableRecovery, `
		SELECT station_id, block, SUM(lost_kwh_sum) AS lost_kwh_sum, SUM(recovered_kwh_sum) AS recovered_kwh_sum
		FROM ws_recovery
		WHERE plant = ? AND day >= ? AND day <= ?
		GROUP BY station_id, block
		ORDER BY station_id`, q.Plant, q.FromKey(), q.ToKey())
}

// BudgetDeviation returns budget and actual energy per block, including the
// plant-level ALL block, over the months overlapping the range.
func (r *Repository) BudgetDeviation(ctx context.Context, q domain.Query) (domain.Table, error) {
	return r.queryTable(ctx, TableBudget, `
		SELECT block, SUM(budget_kwh_sum) AS budget_kwh_sum, SUM(actual_kwh_sum) AS actual_kwh_sum
		FROM budget_deviation
		WHERE plant = ? AND month >= ? AND month <= ?
		GROUP BY block
		ORDER BY block`, q.Plant, q.FromMonth(), q.ToMonth())
}

// ClearSky returns the average clear-sky ratio and the clear-sky day count
// per station, plus a plant-level row keyed ALL.
func (r *Repository) ClearSky(ctx context.Context, q domain.Query) (domain.Table, error) {
	return r.queryTable(ctx, TableClearSky, `
		SELECT station_id, AVG(csr_ratio) AS csr_ratio,
			SUM(CASE WHEN csr_ratio >= ? THEN 1 ELSE 0 END) AS clear_day_cnt
		FROM clear_sky_days
		WHERE plant = ? AND day >= ? AND day <= ?
		GROUP BY station_id
		UNION ALL
		SELECT 'ALL' AS station_id, AVG(csr_ratio) AS csr_ratio,
			SUM(CASE WHEN csr_ratio >= ? THEN 1 ELSE 0 END) AS clear_day_cnt
		FROM clear_sky_days
		WHERE plant = ? AND day >= ? AND day <= ?
		ORDER BY station_id`,
		q.ClearSkyThreshold, q.Plant, q.FromKey(), q.ToKey(),
		q.ClearSkyThreshold, q.Plant, q.FromKey(), q.ToKey())
}

// EquipmentAvailability returns average availability per block and pcs
// (solar) plus per block with an empty pcs. Wind plants only have block rows.
func (r *Repository) EquipmentAvailability(ctx context.Context, q domain.Query, tech domain.Technology) (domain.Table, error) {
	table, _, err := equipmentTable(tech)
	if err != nil {
		return domain.Table{}, err
	}
	blockLevel := `
		SELECT block, '' AS pcs, AVG(availability_pct) AS availability_pct
		FROM ` + table + `
		WHERE plant = ? AND day >= ? AND day <= ?
		GROUP BY block`
	if tech == domain.Wind {
		return r.queryTable(ctx, table, blockLevel+"\nORDER BY block", q.Plant, q.FromKey(), q.ToKey())
	}
	query := `
		SELECT block, pcs, AVG(availability_pct) AS availability_pct
		FROM ` + table + `
		WHERE plant = ? AND day >= ? AND day <= ?
		GROUP BY block, pcs
		UNION ALL` + blockLevel + `
		ORDER BY block, pcs`
	return r.queryTable(ctx, table, query, q.Plant, q.FromKey(), q.ToKey(), q.Plant, q.FromKey(), q.ToKey())
}

// EquipmentColumns discovers the metric columns of the technology's
// equipment table without reading any rows.
func (r *Repository) EquipmentColumns(ctx context.Context, tech domain.Technology) ([]domain.MetricColumn, error) {
	table, _, err := equipmentTable(tech)
	if err != nil {
		return nil, err
	}
	t, err := r.queryTable(ctx, table, "SELECT * FROM "+table+" WHERE 1=0")
	if err != nil {
		return nil, err
	}
	var cols []domain.MetricColumn
	for _, name := range t.Columns {
		if mc, ok := domain.ParseMetricColumn(strings.ToLower(name)); ok {
			cols = append(cols, mc)
		}
	}
	return cols, nil
}

// EquipmentSummary aggregates every metric column of the equipment table per
// block, with a unit count and a trailing plant-level ALL row.
func (r *Repository) EquipmentSummary(ctx context.Context, q domain.Query, tech domain.Technology) (domain.Table, error) {
	table, unit, err := equipmentTable(tech)
	if err != nil {
		return domain.Table{}, err
	}
	cols, err := r.EquipmentColumns(ctx, tech)
	if err != nil {
		return domain.Table{}, err
	}
	if err := validateColumns(cols); err != nil {
		return domain.Table{}, err
	}

	aggs := []string{fmt.Sprintf("COUNT(DISTINCT block || '/' || %s) AS %s_cnt", unit, unitLabel(tech))}
	for _, c := range cols {
		aggs = append(aggs, c.SQL(""))
	}
	where := "WHERE plant = ? AND day >= ? AND day <= ?"
	args := []any{q.Plant, q.FromKey(), q.ToKey()}
	if len(q.Blocks) > 0 {
		where += " AND block IN (?)"
		args = append(args, q.Blocks)
	}
	aggList := strings.Join(aggs, ", ")

	query := `
		SELECT * FROM (
			SELECT block, ` + aggList + ` FROM ` + table + ` ` + where + ` GROUP BY block
			UNION ALL
			SELECT 'ALL' AS block, ` + aggList + ` FROM ` + table + ` ` + where + `
		) u
		ORDER BY CASE WHEN block = 'ALL' THEN 1 ELSE 0 END, block`
	t, err := r.queryTable(ctx, table, query, append(args, args...)...)
	if err != nil {
		return domain.Table{}, err
	}
	// The ALL row is always produced; drop it when no block had data.
	if t.Len() == 1 {
		if n, ok := t.Int(0, unitLabel(tech)+"_cnt"); !ok || n == 0 {
			return domain.NewTable(t.Columns, nil), nil
		}
	}
	return t, nil
}

func equipmentTable(tech domain.Technology) (table, unit string, err error) {
	switch tech {
	case domain.Solar, "":
		return TableInverters, "pcs", nil
	case domain.Wind:
		return TableTurbines, "turbine", nil
	default:
		return "", "", fmt.Errorf("%w: unknown technology %q", domain.ErrInvalidQuery, tech)
	}
}

func unitLabel(tech domain.Technology) string {
	if tech == domain.Wind {
		return "turbine"
	}
	return "inverter"
}

func validateColumns(cols []domain.MetricColumn) error {
	for _, c := range cols {
		if !domain.ValidIdentifier(c.Name) {
			return fmt.Errorf("%w: %q", ErrInvalidColumn, c.Name)
		}
	}
	return nil
}

// queryTable expands slice arguments, rebinds placeholders for the driver
// and scans the result into a domain.Table.
func (r *Repository) queryTable(ctx context.Context, table, query string, args ...any) (domain.Table, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	t, err := r.scan(ctx, query, args...)
	r.observe(table, start, err)
	if err != nil {
		return domain.Table{}, fmt.Errorf("query %s: %w", table, err)
	}
	return t, nil
}

func (r *Repository) scan(ctx context.Context, query string, args ...any) (domain.Table, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return domain.Table{}, err
	}
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return domain.Table{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return domain.Table{}, err
	}
	var data [][]any
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return domain.Table{}, err
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return domain.Table{}, err
	}
	return domain.NewTable(cols, data), nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Repository) observe(table string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.metrics.WarehouseQueries.WithLabelValues(table, outcome).Inc()
	r.metrics.WarehouseQueryDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
}
