package catalog

import (
	"strconv"
	"strings"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

// sourceLabels prefix the measure label for site and reference columns.
var sourceLabels = map[string]string{
	"site": "Site",
	"ref":  "SolarAnywhere",
}

// ColumnLabel translates a column name into its display label with unit,
// e.g. "availability_pct" -> "Availability (%)". Columns outside the naming
// convention are humanized ("station_id" -> "Station Id").
func (c *Catalog) ColumnLabel(col string) string {
	mc, ok := domain.ParseMetricColumn(col)
	if !ok {
		return humanize(col)
	}

	label, ok := c.measures[mc.Measure]
	if !ok {
		label = humanize(mc.Measure)
	}
	if src, ok := sourceLabels[mc.Source]; ok {
		label = src + " " + label
	}
	if mc.Source == "diff" {
		label += " Deviation"
	}
	switch mc.Stat {
	case "min":
		label = "Min " + label
	case "max":
		label = "Max " + label
	case "cnt":
		label += " Count"
	}
	if unit := c.unit(mc); unit != "" {
		label += " (" + unit + ")"
	}
	return label
}

func (c *Catalog) unit(mc domain.MetricColumn) string {
	if u, ok := c.statUnits[mc.Stat]; ok {
		return u
	}
	if mc.Stat == "cnt" || mc.Stat == "ratio" {
		return ""
	}
	return c.measureUnits[mc.Measure]
}

// Decimals returns the rounding for a column: catalog override first, then
// the naming-convention default. Non-metric columns are not rounded (-1).
func (c *Catalog) Decimals(col string) int32 {
	if d, ok := c.decimals[col]; ok {
		return d
	}
	mc, ok := domain.ParseMetricColumn(col)
	if !ok {
		return -1
	}
	return mc.DefaultDecimals()
}


// RoundValue rounds a numeric cell per the column's rule. Non-numeric and
// non-metric values are returned unchanged.
func (c *Catalog) RoundValue(col string, v any) any {
	places := c.Decimals(col)
	if places < 0 {
		return v
	}
	f, ok := domain.ToFloat(v)
	if !ok {
		return v
	}
	return domain.Round(f, places)
}

// FormatValue renders a cell for tooltips and tables; missing values are "n/a".
func (c *Catalog) FormatValue(col string, v any) string {
	if v == nil {
		return "n/a"
	}
	places := c.Decimals(col)
	f, ok := domain.ToFloat(v)
	if !ok || places < 0 {
		if s, isStr := v.(string); isStr {
			return s
		}
		if ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return "n/a"
	}
	return strconv.FormatFloat(domain.Round(f, places), 'f', int(places), 64)
}

// FormatTable returns a copy of t with metric values rounded and columns
// renamed to their display labels.
func (c *Catalog) FormatTable(t domain.Table) domain.Table {
	labels := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		labels[i] = c.ColumnLabel(col)
	}
	rows := make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]any, len(row))
		for i, v := range row {
			if i < len(t.Columns) {
				v = c.RoundValue(t.Columns[i], v)
			}
			out[i] = v
		}
		rows[r] = out
	}
	return domain.NewTable(labels, rows)
}

// humanize turns snake_case into Title Case: "wind_speed" -> "Wind Speed".
func humanize(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}
