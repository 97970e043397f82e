package domain

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Aggregation is the SQL aggregate applied to a metric column across rows.
type Aggregation string

const (
	AggSum Aggregation = "sum"
	AggAvg Aggregation = "avg"
	AggMin Aggregation = "min"
	AggMax Aggregation = "max"
)

var (
	// metricColumnRe parses "<measure>[_<source>]_<stat>", e.g. "ghi_site_sum"
	// -> measure=ghi, source=site, stat=sum. The measure is matched lazily so
	// multi-word measures such as "wind_speed_site_avg" keep their underscores.
	metricColumnRe = regexp.MustCompile(`^([a-z][a-z0-9]*(?:_[a-z0-9]+)*?)(?:_(site|ref|diff))?_(sum|cnt|avg|min|max|pct|ratio)$`)

	// identifierRe is the only shape of column or table name ever
	// interpolated into SQL text.
	identifierRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// MetricColumn is a column name decomposed by the metric naming convention.
type MetricColumn struct {
	Name    string `json:"name"`
	Measure string `json:"measure"`
	Source  string `json:"source,omitempty"`
	Stat    string `json:"stat"`
}

// ParseMetricColumn decomposes a metric column name. It returns false for
// columns that do not follow the convention (keys, labels, dates).
func ParseMetricColumn(name string) (MetricColumn, bool) {
	m := metricColumnRe.FindStringSubmatch(name)
	if m == nil {
		return MetricColumn{}, false
	}
	return MetricColumn{Name: name, Measure: m[1], Source: m[2], Stat: m[3]}, true
}

// MustMetricColumn is ParseMetricColumn for compile-time constants.
func MustMetricColumn(name string) MetricColumn {
	c, ok := ParseMetricColumn(name)
	if !ok {
		panic(fmt.Sprintf("domain: %q is not a metric column", name))
	}
	return c
}

// Aggregation derives the cross-row aggregate from the stat suffix: sums and
// counts add up, min and max keep their extremes, everything else averages.
func (c MetricColumn) Aggregation() Aggregation {
	switch c.Stat {
	case "sum", "cnt":
		return AggSum
	case "min":
		return AggMin
	case "max":
		return AggMax
	default:
		return AggAvg
	}
}

// DefaultDecimals is the rounding applied when the catalog has no override.
func (c MetricColumn) DefaultDecimals() int32 {
	switch c.Stat {
	case "pct":
		return 1
	case "ratio":
		return 3
	case "sum", "cnt":
		return 0
	default:
		return 2
	}
}

// SQL renders the aggregate expression aliased back to the column name.
func (c MetricColumn) SQL(tableAlias string) string {
	col := c.Name
	if tableAlias != "" {
		col = tableAlias + "." + c.Name
	}
	return fmt.Sprintf("%s(%s) AS %s", sqlFunc(c.Aggregation()), col, c.Name)
}

// Counterpart returns the other side of a site/reference comparison:
// "ghi_site_sum" pairs with "ghi_ref_sum" and the reverse. Diff and
// source-less columns have no counterpart.
func (c MetricColumn) Counterpart() (MetricColumn, bool) {
	var source string
	switch c.Source {
	case "site":
		source = "ref"
	case "ref":
		source = "site"
	default:
		return MetricColumn{}, false
	}
	name := c.Measure + "_" + source + "_" + c.Stat
	return MetricColumn{Name: name, Measure: c.Measure, Source: source, Stat: c.Stat}, true
}

// PairedSQL is SQL restricted to rows where other is also present, so both
// sides of a comparison aggregate over the same days.
func (c MetricColumn) PairedSQL(tableAlias string, other MetricColumn) string {
	col, oth := c.Name, other.Name
	if tableAlias != "" {
		col = tableAlias + "." + c.Name
		oth = tableAlias + "." + other.Name
	}
	return fmt.Sprintf("%s(CASE WHEN %s IS NOT NULL AND %s IS NOT NULL THEN %s END) AS %s",
		sqlFunc(c.Aggregation()), col, oth, col, c.Name)
}

func sqlFunc(a Aggregation) string {
	switch a {
	case AggSum:
		return "SUM"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	default:
		return "AVG"
	}
}

// ValidIdentifier reports whether s may be interpolated into SQL as a column
// or table name.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// Round rounds half away from zero to the given number of decimal places
// using decimal arithmetic, so 2.675 rounds to 2.68 rather than 2.67.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
