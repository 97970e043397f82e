package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestQuery_Validate(t *testing.T) {
	q := Query{
		Plant:  " sun1 ",
		From:   day("2024-06-01").Add(13 * time.Hour),
		To:     day("2024-06-30"),
		Blocks: []string{"2", "b02", "B1", " "},
	}
	require.NoError(t, q.Validate())

	assert.Equal(t, "SUN1", q.Plant)
	assert.Equal(t, "2024-06-01", q.FromKey())
	assert.Equal(t, "2024-06-30", q.ToKey())
	assert.Equal(t, 30, q.Days())
	assert.Equal(t, []string{"B01", "B02"}, q.Blocks)
	assert.Equal(t, DefaultClearSkyThreshold, q.ClearSkyThreshold)
	assert.Equal(t, "2024-06", q.FromMonth())
}

func TestQuery_ValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		msg  string
	}{
		{"missing plant", Query{From: day("2024-06-01"), To: day("2024-06-02")}, "plant"},
		{"missing dates", Query{Plant: "SUN1"}, "from and to"},
		{"inverted", Query{Plant: "SUN1", From: day("2024-06-02"), To: day("2024-06-01")}, "after"},
		{"too long", Query{Plant: "SUN1", From: day("2022-01-01"), To: day("2024-01-01")}, "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidQuery)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestQuery_KeepsCustomThreshold(t *testing.T) {
	q := Query{Plant: "SUN1", From: day("2024-06-01"), To: day("2024-06-01"), ClearSkyThreshold: 0.9}
	require.NoError(t, q.Validate())
	assert.Equal(t, 0.9, q.ClearSkyThreshold)
	assert.Equal(t, 1, q.Days())
	assert.Nil(t, q.Blocks)
}

func TestQuery_CacheKeyStable(t *testing.T) {
	a := Query{Plant: "SUN1", From: day("2024-06-01"), To: day("2024-06-30"), Metric: "ghi", Blocks: []string{"B2", "B1"}}
	b := Query{Plant: "sun1", From: day("2024-06-01"), To: day("2024-06-30"), Metric: "ghi", Blocks: []string{"1", "2"}}
	require.NoError(t, a.Validate())
	require.NoError(t, b.Validate())
	assert.Equal(t, a.CacheKey(), b.CacheKey())
}

func TestDefaultRange(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	from, to := DefaultRange(30)
	assert.Equal(t, day("2024-06-01"), from)
	assert.Equal(t, day("2024-06-30"), to)

	from, to = DefaultRange(0)
	assert.Equal(t, day("2024-06-01"), from)
	assert.Equal(t, day("2024-06-30"), to)
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-29"), d)

	_, err = ParseDay("29/02/2024")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestParseTechnology(t *testing.T) {
	tech, err := ParseTechnology("")
	require.NoError(t, err)
	assert.Equal(t, Solar, tech)

	tech, err = ParseTechnology("WIND")
	require.NoError(t, err)
	assert.Equal(t, Wind, tech)

	_, err = ParseTechnology("hydro")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestRefreshEvent_Validate(t *testing.T) {
	assert.NoError(t, RefreshEvent{Table: "ws_daily_metrics"}.Validate())
	assert.Error(t, RefreshEvent{Table: "ws daily"}.Validate())
	assert.Error(t, RefreshEvent{}.Validate())
}
