// Package chart assembles Plotly-compatible figure documents from aggregated
// warehouse frames. It never queries anything and treats missing data as a
// display concern, not an error.
package chart

// Figure is a complete chart document: traces plus layout.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one data series.
type Trace struct {
	Type          string   `json:"type"`
	Name          string   `json:"name,omitempty"`
	Orientation   string   `json:"orientation,omitempty"`
	Mode          string   `json:"mode,omitempty"`
	X             []any    `json:"x"`
	Y             []any    `json:"y"`
	Text          []string `json:"text,omitempty"`
	TextPosition  string   `json:"textposition,omitempty"`
	HoverText     []string `json:"hovertext,omitempty"`
	HoverInfo     string   `json:"hoverinfo,omitempty"`
	CustomData    [][]any  `json:"customdata,omitempty"`
	Marker        *Marker  `json:"marker,omitempty"`
	Line          *Line    `json:"line,omitempty"`
	YAxis         string   `json:"yaxis,omitempty"`
	ConnectGaps   *bool    `json:"connectgaps,omitempty"`
	ShowLegend    *bool    `json:"showlegend,omitempty"`
	HoverTemplate string   `json:"hovertemplate,omitempty"`
}

// Marker styles bar fills and scatter points. Color is a single color or one
// color per point.
type Marker struct {
	Color   any     `json:"color,omitempty"`
	Size    int     `json:"size,omitempty"`
	Symbol  string  `json:"symbol,omitempty"`
	Line    *Line   `json:"line,omitempty"`
	Opacity float64 `json:"opacity,omitempty"`
}

// Line styles lines and shape outlines.
type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
	Dash  string  `json:"dash,omitempty"`
}

// Layout positions and labels the figure.
type Layout struct {
	Title      Title   `json:"title"`
	XAxis      Axis    `json:"xaxis"`
	YAxis      Axis    `json:"yaxis"`
	YAxis2     *Axis   `json:"yaxis2,omitempty"`
	Height     int     `json:"height,omitempty"`
	BarMode    string  `json:"barmode,omitempty"`
	HoverMode  string  `json:"hovermode,omitempty"`
	ShowLegend bool    `json:"showlegend"`
	Legend     *Legend `json:"legend,omitempty"`
	Margin     *Margin `json:"margin,omitempty"`
	Shapes     []Shape `json:"shapes,omitempty"`
}

// Title is a chart or axis title.
type Title struct {
	Text string `json:"text"`
}

// Axis configures one axis.
type Axis struct {
	Title         *Title `json:"title,omitempty"`
	AutoRange     string `json:"autorange,omitempty"`
	CategoryOrder string `json:"categoryorder,omitempty"`
	CategoryArray []any  `json:"categoryarray,omitempty"`
	Type          string `json:"type,omitempty"`
	Overlaying    string `json:"overlaying,omitempty"`
	Side          string `json:"side,omitempty"`
	ZeroLine      *bool  `json:"zeroline,omitempty"`
	TickSuffix    string `json:"ticksuffix,omitempty"`
	AutoMargin    bool   `json:"automargin,omitempty"`
}

// Legend places the legend.
type Legend struct {
	Orientation string  `json:"orientation,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// Margin sets the plot margins in pixels.
type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

// Shape is a line or rectangle drawn over the plot.
type Shape struct {
	Type string `json:"type"`
	XRef string `json:"xref,omitempty"`
	YRef string `json:"yref,omitempty"`
	X0   any    `json:"x0"`
	X1   any    `json:"x1"`
	Y0   any    `json:"y0"`
	Y1   any    `json:"y1"`
	Line *Line  `json:"line,omitempty"`
}

// Palette holds the colors used by the charts.
type Palette struct {
	Positive  string `json:"positive"`
	Negative  string `json:"negative"`
	Alert     string `json:"alert"`
	Missing   string `json:"missing"`
	ClearSky  string `json:"clear_sky"`
	Site      string `json:"site"`
	Reference string `json:"reference"`
	Tolerance string `json:"tolerance"`
}

// DefaultPalette is used when an input leaves its palette empty.
var DefaultPalette = Palette{
	Positive:  "#2E86AB",
	Negative:  "#F18F01",
	Alert:     "#C73E1D",
	Missing:   "#BDBDBD",
	ClearSky:  "#3B1F2B",
	Site:      "#2E86AB",
	Reference: "#6C757D",
	Tolerance: "#C73E1D",
}

func (p Palette) orDefault() Palette {
	if p == (Palette{}) {
		return DefaultPalette
	}
	return p
}

// MetricInfo carries the display settings of the compared metric.
type MetricInfo struct {
	Label             string
	Unit              string
	DeviationUnit     string
	Relative          bool
	Tolerance         float64
	ValueDecimals     int32
	DeviationDecimals int32

	// SiteColumn and ReferenceColumn name the values for FormatValue. When
	// FormatValue is nil, values are rounded to ValueDecimals.
	SiteColumn      string
	ReferenceColumn string
	FormatValue     func(col string, v any) string
}

func (m MetricInfo) formatValue(col string, v *float64, unit string) string {
	if v == nil {
		return missing
	}
	if m.FormatValue == nil {
		return formatNumber(*v, m.ValueDecimals) + unit
	}
	return m.FormatValue(col, *v) + unit
}

func boolPtr(b bool) *bool { return &b }
