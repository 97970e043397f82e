// Package dashboard orchestrates the warehouse, the metric catalog and the
// chart builders into the views served by the HTTP API.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/catalog"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/chart"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/observability"
)

// ErrNoData is returned when a view has nothing to show for the request.
var ErrNoData = errors.New("no data")

// Options tune query defaults.
type Options struct {
	ClearSkyThreshold float64
	DefaultRangeDays  int
	Palette           chart.Palette
}

// Request selects one dashboard view. Zero From and To select the default
// range; Station is only used by the daily chart and Technology only by the
// equipment summary.
type Request struct {
	Plant      string
	Metric     string
	Station    string
	Technology domain.Technology
	From       time.Time
	To         time.Time
	Blocks     []string
}

// Range is the resolved day range of a view.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Service builds dashboard views.
type Service struct {
	repo    warehouse.Reader
	catalog *catalog.Catalog
	metrics *observability.Metrics
	logger  *slog.Logger
	opts    Options
}

// New creates a Service.
func New(repo warehouse.Reader, cat *catalog.Catalog, metrics *observability.Metrics, logger *slog.Logger, opts Options) *Service {
	if opts.ClearSkyThreshold <= 0 || opts.ClearSkyThreshold > 1 {
		opts.ClearSkyThreshold = domain.DefaultClearSkyThreshold
	}
	if opts.DefaultRangeDays <= 0 {
		opts.DefaultRangeDays = 30
	}
	return &Service{repo: repo, catalog: cat, metrics: metrics, logger: logger, opts: opts}
}

// Stations lists the weather stations of a plant.
func (s *Service) Stations(ctx context.Context, plant string) ([]domain.Station, error) {
	plant = strings.ToUpper(strings.TrimSpace(plant))
	if plant == "" {
		return nil, fmt.Errorf("%w: plant is required", domain.ErrInvalidQuery)
	}
	stations, err := s.repo.Stations(ctx, plant)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: plant %s has no stations", ErrNoData, plant)
	}
	return stations, nil
}

// Metrics lists the catalog metrics, optionally for one technology.
func (s *Service) Metrics(tech domain.Technology) []catalog.Metric {
	return s.catalog.Metrics(tech)
}

// CheckReadiness pings the warehouse behind the service.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("warehouse unreachable: %w", err)
	}
	return nil
}

// query resolves the request into a validated warehouse query.
func (s *Service) query(req Request) (domain.Query, error) {
	q := domain.Query{
		Plant:             req.Plant,
		From:              req.From,
		To:                req.To,
		Metric:            req.Metric,
		Blocks:            req.Blocks,
		ClearSkyThreshold: s.opts.ClearSkyThreshold,
		Technology:        req.Technology,
	}
	if q.From.IsZero() && q.To.IsZero() {
		q.From, q.To = domain.DefaultRange(s.opts.DefaultRangeDays)
	}
	if err := q.Validate(); err != nil {
		return domain.Query{}, err
	}
	return q, nil
}

func (s *Service) observeBuild(kind string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, ErrNoData):
		outcome = "empty"
	case err != nil:
		outcome = "error"
	}
	s.metrics.ChartBuilds.WithLabelValues(kind, outcome).Inc()
}

func (s *Service) metricInfo(m catalog.Metric) chart.MetricInfo {
	return chart.MetricInfo{
		Label:             m.Label,
		Unit:              m.Unit,
		DeviationUnit:     m.DeviationUnit(),
		Relative:          m.Deviation != catalog.Absolute,
		Tolerance:         m.Tolerance,
		ValueDecimals:     m.ValueDecimals(),
		DeviationDecimals: m.DeviationDecimals(),
		SiteColumn:        m.SiteColumn,
		ReferenceColumn:   m.ReferenceColumn,
		FormatValue:       s.catalog.FormatValue,
	}
}

func rangeOf(q domain.Query) Range {
	return Range{From: q.FromKey(), To: q.ToKey()}
}
