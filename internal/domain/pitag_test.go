package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePITag(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      PITag
		stationID string
		label     string
	}{
		{
			name:      "solar station with pcs",
			raw:       "SUN1-B02-PCS05-WS01-GHI",
			want:      PITag{Raw: "SUN1-B02-PCS05-WS01-GHI", Plant: "SUN1", Block: "02", PCS: "05", WS: "01", Measurement: "GHI"},
			stationID: "B02-PCS05-WS01",
			label:     "B02 / PCS05 / WS01",
		},
		{
			name:      "met mast without pcs",
			raw:       "WND1-B01-WS03-WIND_SPEED",
			want:      PITag{Raw: "WND1-B01-WS03-WIND_SPEED", Plant: "WND1", Block: "01", WS: "03", Measurement: "WIND_SPEED"},
			stationID: "B01-WS03",
			label:     "B01 / WS03",
		},
		{
			name:      "dots lower case and short numbers",
			raw:       "sun1.b2.pcs5.ws1.poa",
			want:      PITag{Raw: "sun1.b2.pcs5.ws1.poa", Plant: "SUN1", Block: "02", PCS: "05", WS: "01", Measurement: "POA"},
			stationID: "B02-PCS05-WS01",
			label:     "B02 / PCS05 / WS01",
		},
		{
			name:      "underscores and surrounding space",
			raw:       "  SUN2_B10_PCS12_WS04_TEMP ",
			want:      PITag{Raw: "SUN2_B10_PCS12_WS04_TEMP", Plant: "SUN2", Block: "10", PCS: "12", WS: "04", Measurement: "TEMP"},
			stationID: "B10-PCS12-WS04",
			label:     "B10 / PCS12 / WS04",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, err := ParsePITag(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tag)
			assert.Equal(t, tt.stationID, tag.StationID())
			assert.Equal(t, tt.label, tag.Label())
		})
	}
}

func TestParsePITag_Invalid(t *testing.T) {
	for _, raw := range []string{"", "SUN1", "SUN1-B02-WS01", "SUN1-PCS05-WS01-GHI", "SUN1-B02-PCS05-GHI", "day_count"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParsePITag(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPITag)
		})
	}
}

func TestStationID(t *testing.T) {
	assert.Equal(t, "B02-PCS05-WS01", StationID("2", "5", "1"))
	assert.Equal(t, "B02-PCS05-WS01", StationID("B02", "PCS05", "WS01"))
	assert.Equal(t, "B02-PCS05-WS01", StationID("b2", "pcs05", "ws1"))
	assert.Equal(t, "B01-WS03", StationID("01", "", "03"))
}

func TestPITag_WarehouseKeys(t *testing.T) {
	tag, err := ParsePITag("SUN1-B2-PCS5-WS1-GHI")
	require.NoError(t, err)
	assert.Equal(t, "B02", tag.BlockKey())
	assert.Equal(t, "PCS05", tag.PCSKey())

	mast, err := ParsePITag("WND1-B01-WS03-WIND_SPEED")
	require.NoError(t, err)
	assert.Equal(t, "B01", mast.BlockKey())
	assert.Empty(t, mast.PCSKey())
}
