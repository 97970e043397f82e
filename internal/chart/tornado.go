package chart

import (
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

const (
	minTornadoHeight = 400
	barHeight        = 28
	tornadoChrome    = 120
)

// Lookups hold the auxiliary values shown in each bar's tooltip. Station
// keyed maps use the canonical station id; budget uses the block, and
// availability uses "block/pcs" with a plain "block" fallback. Plant-wide
// values are keyed domain.PlantLevel.
type Lookups struct {
	SiteValue      map[string]float64
	ReferenceValue map[string]float64
	RecoveryPct    map[string]float64
	BudgetPct      map[string]float64
	ClearSkyRatio  map[string]float64
	ClearSkyDays   map[string]int64
	Availability   map[string]float64
}

// TornadoInput is everything needed to draw the deviation ranking.
// Deviation and ClearSky are single-row frames whose columns are PI tags.
type TornadoInput struct {
	Title     string
	Metric    MetricInfo
	Deviation domain.Table
	ClearSky  domain.Table
	Lookups   Lookups
	Palette   Palette
}

// StationBar is one aligned row of the tornado chart.
type StationBar struct {
	StationID          string   `json:"station_id"`
	PITag              string   `json:"pi_tag"`
	Label              string   `json:"label"`
	Deviation          *float64 `json:"deviation"`
	ClearSkyDeviation  *float64 `json:"clear_sky_deviation"`
	SiteValue          *float64 `json:"site_value"`
	ReferenceValue     *float64 `json:"reference_value"`
	RecoveryPct        *float64 `json:"recovery_pct"`
	BudgetDeviationPct *float64 `json:"budget_deviation_pct"`
	ClearSkyRatio      *float64 `json:"clear_sky_ratio"`
	ClearSkyDays       int64    `json:"clear_sky_days"`
	AvailabilityPct    *float64 `json:"availability_pct"`
	OutOfTolerance     bool     `json:"out_of_tolerance"`
}

// TornadoResult is the figure plus the aligned rows behind it.
type TornadoResult struct {
	Figure  Figure       `json:"figure"`
	Bars    []StationBar `json:"bars"`
	Skipped []string     `json:"skipped,omitempty"`
}

// Tornado ranks stations by deviation magnitude and builds the bar trace
// (all days) with the clear-sky scatter overlay. Columns that are not valid
// PI tags are skipped and reported. Stations without a deviation sort last
// and draw as zero-length bars.
func Tornado(in TornadoInput) TornadoResult {
	palette := in.Palette.orDefault()
	bars, skipped := alignStations(in)

	n := len(bars)
	labels := make([]any, n)
	barX := make([]any, n)
	barColors := make([]string, n)
	barText := make([]string, n)
	scatterX := make([]any, n)
	hover := make([]string, n)
	custom := make([][]any, n)

	for i, b := range bars {
		labels[i] = b.Label
		barX[i] = 0.0
		barText[i] = missing
		barColors[i] = palette.Missing
		if b.Deviation != nil {
			v := domain.Round(*b.Deviation, in.Metric.DeviationDecimals)
			barX[i] = v
			barText[i] = formatSigned(v, in.Metric.DeviationDecimals)
			barColors[i] = barColor(v, in.Metric.Tolerance, palette)
		}
		if b.ClearSkyDeviation != nil {
			scatterX[i] = domain.Round(*b.ClearSkyDeviation, in.Metric.DeviationDecimals)
		}
		hover[i] = hoverText(b, in.Metric)
		custom[i] = []any{
			b.StationID, b.PITag, ptrValue(b.Deviation), ptrValue(b.ClearSkyDeviation),
			ptrValue(b.SiteValue), ptrValue(b.ReferenceValue), ptrValue(b.RecoveryPct),
			ptrValue(b.BudgetDeviationPct), ptrValue(b.ClearSkyRatio), b.ClearSkyDays,
			ptrValue(b.AvailabilityPct),
		}
	}

	devTitle := "Deviation"
	if in.Metric.DeviationUnit != "" {
		devTitle += " (" + in.Metric.DeviationUnit + ")"
	}

	fig := Figure{
		Data: []Trace{
			{
				Type:         "bar",
				Name:         "All days",
				Orientation:  "h",
				X:            barX,
				Y:            labels,
				Text:         barText,
				TextPosition: "outside",
				HoverText:    hover,
				HoverInfo:    "text",
				CustomData:   custom,
				Marker:       &Marker{Color: barColors},
			},
			{
				Type:        "scatter",
				Name:        "Clear-sky days",
				Mode:        "markers",
				X:           scatterX,
				Y:           labels,
				HoverText:   hover,
				HoverInfo:   "text",
				Marker:      &Marker{Color: palette.ClearSky, Size: 9, Symbol: "diamond"},
				ConnectGaps: boolPtr(false),
			},
		},
		Layout: Layout{
			Title: Title{Text: in.Title},
			XAxis: Axis{Title: &Title{Text: devTitle}, ZeroLine: boolPtr(true)},
			YAxis: Axis{
				Type:          "category",
				AutoRange:     "reversed",
				CategoryOrder: "array",
				CategoryArray: labels,
				AutoMargin:    true,
			},
			Height:     TornadoHeight(n),
			BarMode:    "overlay",
			HoverMode:  "closest",
			ShowLegend: true,
			Legend:     &Legend{Orientation: "h", X: 0, Y: 1.02},
			Margin:     &Margin{L: 160, R: 40, T: 80, B: 40},
			Shapes:     toleranceShapes(in.Metric.Tolerance, palette),
		},
	}
	return TornadoResult{Figure: fig, Bars: bars, Skipped: skipped}
}

// TornadoHeight grows the figure with the number of stations so bars keep a
// readable thickness.
func TornadoHeight(stations int) int {
	h := barHeight*stations + tornadoChrome
	if h < minTornadoHeight {
		return minTornadoHeight
	}
	return h
}

func alignStations(in TornadoInput) ([]StationBar, []string) {
	var skipped []string
	seen := make(map[string]bool, len(in.Deviation.Columns))
	bars := make([]StationBar, 0, len(in.Deviation.Columns))

	for _, col := range in.Deviation.Columns {
		tag, err := domain.ParsePITag(col)
		if err != nil {
			skipped = append(skipped, col)
			continue
		}
		id := tag.StationID()
		if seen[id] {
			continue
		}
		seen[id] = true

		b := StationBar{StationID: id, PITag: col, Label: tag.Label()}
		b.Deviation = floatCell(in.Deviation, col)
		b.ClearSkyDeviation = floatCell(in.ClearSky, col)
		applyLookups(&b, tag, in.Lookups)
		if b.Deviation != nil && in.Metric.Tolerance > 0 {
			shown := domain.Round(*b.Deviation, in.Metric.DeviationDecimals)
			b.OutOfTolerance = math.Abs(shown) > in.Metric.Tolerance
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		a, b := bars[i], bars[j]
		if (a.Deviation == nil) != (b.Deviation == nil) {
			return a.Deviation != nil
		}
		if a.Deviation != nil {
			da, db := math.Abs(*a.Deviation), math.Abs(*b.Deviation)
			if da != db {
				return da > db
			}
		}
		return a.Label < b.Label
	})
	return bars, skipped
}

func applyLookups(b *StationBar, tag domain.PITag, l Lookups) {
	b.SiteValue = lookup(l.SiteValue, b.StationID)
	b.ReferenceValue = lookup(l.ReferenceValue, b.StationID)
	b.RecoveryPct = lookup(l.RecoveryPct, b.StationID)
	block := tag.BlockKey()
	b.BudgetDeviationPct = lookup(l.BudgetPct, block, domain.PlantLevel)
	b.ClearSkyRatio = lookup(l.ClearSkyRatio, b.StationID, domain.PlantLevel)
	b.ClearSkyDays = l.ClearSkyDays[b.StationID]
	if pcs := tag.PCSKey(); pcs != "" {
		b.AvailabilityPct = lookup(l.Availability, block+"/"+pcs, block)
	} else {
		b.AvailabilityPct = lookup(l.Availability, block)
	}
}

// lookup returns the first key present in m, trying keys in order.
func lookup(m map[string]float64, keys ...string) *float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return &v
		}
	}
	return nil
}

func floatCell(t domain.Table, col string) *float64 {
	if t.Empty() {
		return nil
	}
	v, ok := t.Float(0, col)
	if !ok {
		return nil
	}
	return &v
}

func barColor(dev, tolerance float64, p Palette) string {
	switch {
	case tolerance > 0 && math.Abs(dev) > tolerance:
		return p.Alert
	case dev >= 0:
		return p.Positive
	default:
		return p.Negative
	}
}

func toleranceShapes(tolerance float64, p Palette) []Shape {
	if tolerance <= 0 {
		return nil
	}
	shapes := make([]Shape, 0, 2)
	for _, x := range []float64{-tolerance, tolerance} {
		shapes = append(shapes, Shape{
			Type: "line",
			XRef: "x",
			YRef: "paper",
			X0:   x,
			X1:   x,
			Y0:   0,
			Y1:   1,
			Line: &Line{Color: p.Tolerance, Width: 1, Dash: "dash"},
		})
	}
	return shapes
}

func hoverText(b StationBar, m MetricInfo) string {
	devUnit := unitSuffix(m.DeviationUnit)
	valUnit := unitSuffix(m.Unit)

	lines := []string{
		"<b>" + b.Label + "</b>",
		"PI tag: " + b.PITag,
		"Deviation: " + formatSignedPtr(b.Deviation, m.DeviationDecimals, devUnit),
		"Clear-sky deviation: " + formatSignedPtr(b.ClearSkyDeviation, m.DeviationDecimals, devUnit),
		"Site " + m.Label + ": " + m.formatValue(m.SiteColumn, b.SiteValue, valUnit),
		"SolarAnywhere " + m.Label + ": " + m.formatValue(m.ReferenceColumn, b.ReferenceValue, valUnit),
		"Recovery: " + formatPtr(b.RecoveryPct, 1, " %"),
		"Budget deviation: " + formatSignedPtr(b.BudgetDeviationPct, 1, " %"),
		"Clear-sky ratio: " + formatPtr(b.ClearSkyRatio, 3, "") + " (" + formatInt(b.ClearSkyDays) + " clear days)",
		"Availability: " + formatPtr(b.AvailabilityPct, 1, " %"),
	}
	return strings.Join(lines, "<br>")
}

func ptrValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
