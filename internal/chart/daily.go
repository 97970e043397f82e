package chart

import (
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

// DailyInput is one station's per-day series. Series must hold a "day"
// column, the three named metric columns and an optional 0/1 "clear_sky"
// column.
type DailyInput struct {
	Title           string
	Metric          MetricInfo
	Series          domain.Table
	SiteColumn      string
	ReferenceColumn string
	DeviationColumn string
	Palette         Palette
}

// Daily draws site and reference lines with the per-day deviation as bars on
// a secondary axis. Clear-sky days are marked on the site line. Missing
// values are left as gaps.
func Daily(in DailyInput) Figure {
	palette := in.Palette.orDefault()
	t := in.Series
	n := t.Len()

	days := make([]any, n)
	site := make([]any, n)
	ref := make([]any, n)
	dev := make([]any, n)
	devColors := make([]string, n)
	var clearDays, clearSite []any

	for r := 0; r < n; r++ {
		days[r] = t.String(r, "day")
		s, sok := t.Float(r, in.SiteColumn)
		f, fok := t.Float(r, in.ReferenceColumn)
		if sok {
			site[r] = domain.Round(s, in.Metric.ValueDecimals)
		}
		if fok {
			ref[r] = domain.Round(f, in.Metric.ValueDecimals)
		}

		devColors[r] = palette.Missing
		if d, ok := dailyDeviation(t, r, in, s, sok, f, fok); ok {
			v := domain.Round(d, in.Metric.DeviationDecimals)
			dev[r] = v
			devColors[r] = barColor(v, in.Metric.Tolerance, palette)
		}

		if flag, ok := t.Int(r, "clear_sky"); ok && flag == 1 && sok {
			clearDays = append(clearDays, days[r])
			clearSite = append(clearSite, site[r])
		}
	}

	valueTitle := in.Metric.Label
	if in.Metric.Unit != "" {
		valueTitle += " (" + in.Metric.Unit + ")"
	}
	devTitle := "Deviation"
	if in.Metric.DeviationUnit != "" {
		devTitle += " (" + in.Metric.DeviationUnit + ")"
	}

	traces := []Trace{
		{
			Type:        "scatter",
			Name:        "Site",
			Mode:        "lines+markers",
			X:           days,
			Y:           site,
			Line:        &Line{Color: palette.Site, Width: 2},
			ConnectGaps: boolPtr(false),
		},
		{
			Type:        "scatter",
			Name:        "SolarAnywhere",
			Mode:        "lines+markers",
			X:           days,
			Y:           ref,
			Line:        &Line{Color: palette.Reference, Width: 2, Dash: "dot"},
			ConnectGaps: boolPtr(false),
		},
		{
			Type:   "bar",
			Name:   "Deviation",
			X:      days,
			Y:      dev,
			YAxis:  "y2",
			Marker: &Marker{Color: devColors, Opacity: 0.5},
		},
	}
	if len(clearDays) > 0 {
		traces = append(traces, Trace{
			Type:   "scatter",
			Name:   "Clear-sky day",
			Mode:   "markers",
			X:      clearDays,
			Y:      clearSite,
			Marker: &Marker{Color: palette.ClearSky, Size: 10, Symbol: "star"},
		})
	}

	return Figure{
		Data: traces,
		Layout: Layout{
			Title:      Title{Text: in.Title},
			XAxis:      Axis{Title: &Title{Text: "Day"}, Type: "date"},
			YAxis:      Axis{Title: &Title{Text: valueTitle}},
			YAxis2:     &Axis{Title: &Title{Text: devTitle}, Overlaying: "y", Side: "right", ZeroLine: boolPtr(true)},
			Height:     450,
			HoverMode:  "x unified",
			ShowLegend: true,
			Legend:     &Legend{Orientation: "h", X: 0, Y: 1.1},
			Margin:     &Margin{L: 60, R: 60, T: 80, B: 40},
		},
	}
}

// dailyDeviation prefers the stored per-day deviation and falls back to
// computing it from site and reference.
func dailyDeviation(t domain.Table, r int, in DailyInput, site float64, siteOK bool, ref float64, refOK bool) (float64, bool) {
	if in.DeviationColumn != "" {
		if d, ok := t.Float(r, in.DeviationColumn); ok {
			return d, true
		}
	}
	if !siteOK || !refOK {
		return 0, false
	}
	return Deviation(site, ref, in.Metric.Relative)
}

// Deviation compares a site value with its reference: relative in percent
// of the reference, or the plain difference. A relative deviation against a
// zero reference is undefined.
func Deviation(site, ref float64, relative bool) (float64, bool) {
	if !relative {
		return site - ref, true
	}
	if ref == 0 {
		return 0, false
	}
	return (site - ref) / ref * 100, true
}
