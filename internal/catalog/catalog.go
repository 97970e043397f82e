// Package catalog translates internal metric codes and column names into
// display labels, units and rounding rules.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

//go:embed metrics.yaml
var defaultCatalog []byte

// ErrUnknownMetric is returned by Lookup for codes not in the catalog.
var ErrUnknownMetric = errors.New("unknown metric")

// DeviationMode says how site and reference values are compared.
type DeviationMode string

const (
	// Relative deviation is (site-ref)/ref in percent.
	Relative DeviationMode = "relative"
	// Absolute deviation is site-ref in the metric's unit.
	Absolute DeviationMode = "absolute"
)

// Metric describes one comparable measurement.
type Metric struct {
	Code            string            `yaml:"code" json:"code"`
	Label           string            `yaml:"label" json:"label"`
	Unit            string            `yaml:"unit" json:"unit"`
	Technology      domain.Technology `yaml:"technology" json:"technology"`
	SiteColumn      string            `yaml:"site_column" json:"site_column"`
	ReferenceColumn string            `yaml:"reference_column" json:"reference_column"`
	DailyColumn     string            `yaml:"daily_deviation_column" json:"daily_deviation_column"`
	Deviation       DeviationMode     `yaml:"deviation" json:"deviation"`
	Tolerance       float64           `yaml:"tolerance" json:"tolerance"`
	Decimals        *int32            `yaml:"decimals,omitempty" json:"decimals,omitempty"`
}

// Columns returns the warehouse columns the metric reads.
func (m Metric) Columns() []domain.MetricColumn {
	return []domain.MetricColumn{
		domain.MustMetricColumn(m.SiteColumn),
		domain.MustMetricColumn(m.ReferenceColumn),
		domain.MustMetricColumn(m.DailyColumn),
	}
}

// DeviationUnit is "%" for relative metrics and the metric unit otherwise.
func (m Metric) DeviationUnit() string {
	if m.Deviation == Absolute {
		return m.Unit
	}
	return "%"
}

// ValueDecimals is the rounding for site and reference values.
func (m Metric) ValueDecimals() int32 {
	if m.Decimals != nil {
		return *m.Decimals
	}
	return domain.MustMetricColumn(m.SiteColumn).DefaultDecimals()
}

// DeviationDecimals is the rounding for deviations.
func (m Metric) DeviationDecimals() int32 {
	if m.Deviation == Absolute {
		return m.ValueDecimals()
	}
	return 1
}

type file struct {
	Metrics      []Metric          `yaml:"metrics"`
	Measures     map[string]string `yaml:"measures"`
	StatUnits    map[string]string `yaml:"stat_units"`
	MeasureUnits map[string]string `yaml:"measure_units"`
	Decimals     map[string]int32  `yaml:"decimals"`
}

// Catalog is the loaded, validated metric catalog. It is immutable and safe
// for concurrent use.
type Catalog struct {
	metrics      map[string]Metric
	order        []string
	measures     map[string]string
	statUnits    map[string]string
	measureUnits map[string]string
	decimals     map[string]int32
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, or the compiled-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metric catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse metric catalog: %w", err)
	}

	c := &Catalog{
		metrics:      make(map[string]Metric, len(f.Metrics)),
		measures:     orEmpty(f.Measures),
		statUnits:    orEmpty(f.StatUnits),
		measureUnits: orEmpty(f.MeasureUnits),
		decimals:     f.Decimals,
	}
	if c.decimals == nil {
		c.decimals = map[string]int32{}
	}

	for _, m := range f.Metrics {
		m.Code = strings.ToLower(strings.TrimSpace(m.Code))
		if err := validateMetric(m); err != nil {
			return nil, err
		}
		if _, dup := c.metrics[m.Code]; dup {
			return nil, fmt.Errorf("metric catalog: duplicate code %q", m.Code)
		}
		if m.Deviation == "" {
			m.Deviation = Relative
		}
		c.metrics[m.Code] = m
		c.order = append(c.order, m.Code)
		if m.Decimals != nil {
			for _, col := range []string{m.SiteColumn, m.ReferenceColumn} {
				if _, set := c.decimals[col]; !set {
					c.decimals[col] = *m.Decimals
				}
			}
		}
	}
	if len(c.metrics) == 0 {
		return nil, errors.New("metric catalog: no metrics defined")
	}
	return c, nil
}

func validateMetric(m Metric) error {
	if m.Code == "" {
		return errors.New("metric catalog: metric without code")
	}
	for _, col := range []string{m.SiteColumn, m.ReferenceColumn, m.DailyColumn} {
		if _, ok := domain.ParseMetricColumn(col); !ok {
			return fmt.Errorf("metric catalog: %s: %q is not a metric column", m.Code, col)
		}
	}
	switch m.Technology {
	case domain.Solar, domain.Wind:
	default:
		return fmt.Errorf("metric catalog: %s: unknown technology %q", m.Code, m.Technology)
	}
	switch m.Deviation {
	case "", Relative, Absolute:
	default:
		return fmt.Errorf("metric catalog: %s: unknown deviation mode %q", m.Code, m.Deviation)
	}
	return nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// Lookup returns the metric for a code.
func (c *Catalog) Lookup(code string) (Metric, error) {
	m, ok := c.metrics[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Metric{}, fmt.Errorf("%w: %q", ErrUnknownMetric, code)
	}
	return m, nil
}

// Metrics lists metrics in catalog order, optionally filtered by technology.
func (c *Catalog) Metrics(tech domain.Technology) []Metric {
	out := make([]Metric, 0, len(c.order))
	for _, code := range c.order {
		m := c.metrics[code]
		if tech != "" && m.Technology != tech {
			continue
		}
		out = append(out, m)
	}
	return out
}
