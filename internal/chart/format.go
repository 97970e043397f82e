package chart

import (
	"strconv"
	"strings"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

const missing = "n/a"

func formatNumber(v float64, places int32) string {
	return strconv.FormatFloat(domain.Round(v, places), 'f', int(places), 64)
}

func formatSigned(v float64, places int32) string {
	s := formatNumber(v, places)
	if domain.Round(v, places) > 0 {
		return "+" + s
	}
	return s
}

func formatPtr(v *float64, places int32, unit string) string {
	if v == nil {
		return missing
	}
	return formatNumber(*v, places) + unit
}

func formatSignedPtr(v *float64, places int32, unit string) string {
	if v == nil {
		return missing
	}
	return formatSigned(*v, places) + unit
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}

// KeyedValues indexes a lookup table by the joined key columns ("/"
// separated), skipping rows whose value is missing.
func KeyedValues(t domain.Table, valueCol string, keyCols ...string) map[string]float64 {
	out := make(map[string]float64, t.Len())
	for r := 0; r < t.Len(); r++ {
		v, ok := t.Float(r, valueCol)
		if !ok {
			continue
		}
		out[rowKey(t, r, keyCols)] = v
	}
	return out
}

// KeyedCounts is KeyedValues for integer columns.
func KeyedCounts(t domain.Table, valueCol string, keyCols ...string) map[string]int64 {
	out := make(map[string]int64, t.Len())
	for r := 0; r < t.Len(); r++ {
		v, ok := t.Int(r, valueCol)
		if !ok {
			continue
		}
		out[rowKey(t, r, keyCols)] = v
	}
	return out
}

// rowKey joins the key cells; trailing empty cells are dropped so a block
// row with an empty pcs is keyed by the block alone.
func rowKey(t domain.Table, r int, keyCols []string) string {
	parts := make([]string, 0, len(keyCols))
	for _, c := range keyCols {
		parts = append(parts, t.String(r, c))
	}
	for len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "/")
}
