// Package domain models weather-station (WS) comparison data: on-site sensor
// measurements aggregated against the SolarAnywhere / TMY reference dataset.
//
// # Data Source
//
// All inputs come from pre-built analytic tables in the data warehouse. The
// tables are rebuilt upstream (daily) and are read-only from this service's
// point of view. Query results are returned as rectangular [Table] values,
// one row per station or per station-day.
//
// # PI Tag Conventions
//
// Sensor columns are identified by PI tags that encode the position of the
// weather station in the plant hierarchy:
//
//	<plant>-B<block>-[PCS<pcs>-]WS<ws>-<measurement>
//	"SUN1-B02-PCS05-WS01-GHI"  →  plant SUN1, block 02, PCS 05, WS 01, GHI
//	"WND1-B01-WS03-WIND_SPEED" →  met mast without a power conversion station
//
// Separators may be '-', '_' or '.', and letters are case-insensitive. The
// canonical station id drops the plant and measurement ("B02-PCS05-WS01") and
// is the join key across every WS-level table. See [ParsePITag].
//
// # Metric Column Conventions
//
// Metric columns follow a naming convention that carries their aggregation
// and rounding rules:
//
//	<measure>[_<source>]_<stat>
//	ghi_site_sum      site GHI, summed across days, rounded to 0 places
//	ghi_ref_sum       reference GHI, summed
//	ghi_diff_pct      daily deviation percentage, averaged, 1 place
//	availability_pct  equipment availability, averaged, 1 place
//	csr_ratio         clear-sky ratio, averaged, 3 places
//
// Sources are site, ref and diff. Stats are sum, cnt (summed), min, max, and
// avg, pct, ratio (averaged). See [ParseMetricColumn].
//
// # Missing Data
//
// NULL, NaN and ±Inf are all treated as missing. Aggregations never turn a
// missing value into zero; the chart layer decides how each missing value is
// presented.
package domain
