package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

func TestColumnLabel(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		col  string
		want string
	}{
		{"availability_pct", "Availability (%)"},
		{"energy_sum", "Energy (kWh)"},
		{"pr_pct", "Performance Ratio (%)"},
		{"ghi_site_sum", "Site GHI (kWh/m²)"},
		{"ghi_ref_sum", "SolarAnywhere GHI (kWh/m²)"},
		{"ghi_diff_pct", "GHI Deviation (%)"},
		{"wind_speed_avg", "Wind Speed (m/s)"},
		{"csr_ratio", "Clear-Sky Ratio"},
		{"alarm_cnt", "Alarm Count"},
		{"temp_site_max", "Max Site Temperature (°C)"},
		{"station_id", "Station Id"},
		{"block", "Block"},
	}
	for _, tt := range tests {
		t.Run(tt.col, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ColumnLabel(tt.col))
		})
	}
}

func TestDecimalsAndAggregation(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, int32(0), c.Decimals("energy_sum"))
	assert.Equal(t, int32(2), c.Decimals("pr_pct"), "catalog override wins")
	assert.Equal(t, int32(1), c.Decimals("availability_pct"))
	assert.Equal(t, int32(3), c.Decimals("csr_ratio"))
	assert.Equal(t, int32(-1), c.Decimals("block"))
	assert.Equal(t, int32(1), c.Decimals("temp_site_avg"), "metric decimals apply to its value columns")
	assert.Equal(t, int32(1), c.Decimals("temp_ref_avg"))
}

func TestFormatValue(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "1235", c.FormatValue("energy_sum", 1234.56))
	assert.Equal(t, "99.2", c.FormatValue("availability_pct", 99.16))
	assert.Equal(t, "0.912", c.FormatValue("csr_ratio", 0.91249))
	assert.Equal(t, "12", c.FormatValue("alarm_cnt", int64(12)))
	assert.Equal(t, "B01", c.FormatValue("block", "B01"))
	assert.Equal(t, "n/a", c.FormatValue("energy_sum", nil))
	assert.Equal(t, "n/a", c.FormatValue("energy_sum", true))
}

func TestFormatTable(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	in := domain.NewTable(
		[]string{"block", "energy_sum", "availability_pct", "pr_pct"},
		[][]any{
			{"B01", 10234.4, 99.156, 81.2345},
			{"B02", nil, 97.04, nil},
		},
	)
	out := c.FormatTable(in)

	assert.Equal(t, []string{"Block", "Energy (kWh)", "Availability (%)", "Performance Ratio (%)"}, out.Columns)
	want := [][]any{
		{"B01", 10234.0, 99.2, 81.23},
		{"B02", nil, 97.0, nil},
	}
	if diff := cmp.Diff(want, out.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 10234.4, in.Rows[0][1], "input must not be modified")
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Wind Speed", humanize("wind_speed"))
	assert.Equal(t, "Station Id", humanize("station_id"))
	assert.Equal(t, "", humanize(""))
}
