package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	codes := make([]string, 0, 4)
	for _, m := range c.Metrics("") {
		codes = append(codes, m.Code)
	}
	assert.Equal(t, []string{"ghi", "poa", "temp", "wind_speed"}, codes)

	ghi, err := c.Lookup(" GHI ")
	require.NoError(t, err)
	assert.Equal(t, "Global Horizontal Irradiance", ghi.Label)
	assert.Equal(t, Relative, ghi.Deviation)
	assert.Equal(t, "%", ghi.DeviationUnit())
	assert.Equal(t, int32(0), ghi.ValueDecimals())
	assert.Equal(t, int32(1), ghi.DeviationDecimals())
	assert.Equal(t, []domain.MetricColumn{
		domain.MustMetricColumn("ghi_site_sum"),
		domain.MustMetricColumn("ghi_ref_sum"),
		domain.MustMetricColumn("ghi_diff_pct"),
	}, ghi.Columns())

	temp, err := c.Lookup("temp")
	require.NoError(t, err)
	assert.Equal(t, Absolute, temp.Deviation)
	assert.Equal(t, "°C", temp.DeviationUnit())
	assert.Equal(t, int32(1), temp.ValueDecimals())
	assert.Equal(t, int32(1), temp.DeviationDecimals())
}

func TestLookup_Unknown(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Lookup("snow_depth")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestMetrics_FilterByTechnology(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	solar := c.Metrics(domain.Solar)
	require.Len(t, solar, 3)
	assert.Equal(t, "ghi", solar[0].Code)

	wind := c.Metrics(domain.Wind)
	require.Len(t, wind, 1)
	assert.Equal(t, "wind_speed", wind[0].Code)

	assert.Len(t, c.Metrics(""), 4)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"bad yaml", "metrics: [", "parse metric catalog"},
		{"empty", "metrics: []", "no metrics"},
		{"bad column", `
metrics:
  - code: x
    technology: solar
    site_column: x_site
    reference_column: x_ref_sum
    daily_deviation_column: x_diff_pct`, "not a metric column"},
		{"bad technology", `
metrics:
  - code: x
    technology: hydro
    site_column: x_site_sum
    reference_column: x_ref_sum
    daily_deviation_column: x_diff_pct`, "unknown technology"},
		{"bad mode", `
metrics:
  - code: x
    technology: solar
    deviation: squared
    site_column: x_site_sum
    reference_column: x_ref_sum
    daily_deviation_column: x_diff_pct`, "unknown deviation mode"},
		{"duplicate", `
metrics:
  - code: x
    technology: solar
    site_column: x_site_sum
    reference_column: x_ref_sum
    daily_deviation_column: x_diff_pct
  - code: X
    technology: solar
    site_column: x_site_sum
    reference_column: x_ref_sum
    daily_deviation_column: x_diff_pct`, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParse_DefaultsDeviationMode(t *testing.T) {
	c, err := Parse([]byte(`
metrics:
  - code: x
    technology: wind
    site_column: x_site_sum
    reference_column: x_ref_sum
    daily_deviation_column: x_diff_pct`))
	require.NoError(t, err)
	m, err := c.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, Relative, m.Deviation)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/catalog.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read metric catalog")
}
