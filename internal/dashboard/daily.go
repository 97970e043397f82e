package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/catalog"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/chart"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

// DailyView is the per-day comparison of one station.
type DailyView struct {
	Plant   string         `json:"plant"`
	Station domain.Station `json:"station"`
	Metric  catalog.Metric `json:"metric"`
	Range   Range          `json:"range"`
	Figure  chart.Figure   `json:"figure"`
}

// DailyChart draws site against reference per day for one station.
func (s *Service) DailyChart(ctx context.Context, req Request) (_ *DailyView, err error) {
	defer func() { s.observeBuild("daily", err) }()

	metric, err := s.catalog.Lookup(req.Metric)
	if err != nil {
		return nil, err
	}
	req.Metric = metric.Code
	q, err := s.query(req)
	if err != nil {
		return nil, err
	}

	station, err := s.findStation(ctx, q.Plant, req.Station)
	if err != nil {
		return nil, err
	}

	series, err := s.repo.DailySeries(ctx, q, station.ID, metric.Columns())
	if err != nil {
		return nil, fmt.Errorf("daily series: %w", err)
	}
	if series.Empty() {
		return nil, fmt.Errorf("%w: station %s has no %s data from %s to %s",
			ErrNoData, station.ID, metric.Code, q.FromKey(), q.ToKey())
	}

	fig := chart.Daily(chart.DailyInput{
		Title:           fmt.Sprintf("%s, %s", station.Label, metric.Label),
		Metric:          s.metricInfo(metric),
		Series:          series,
		SiteColumn:      metric.SiteColumn,
		ReferenceColumn: metric.ReferenceColumn,
		DeviationColumn: metric.DailyColumn,
		Palette:         s.opts.Palette,
	})
	return &DailyView{Plant: q.Plant, Station: station, Metric: metric, Range: rangeOf(q), Figure: fig}, nil
}

// findStation accepts a station id or a full PI tag.
func (s *Service) findStation(ctx context.Context, plant, ref string) (domain.Station, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Station{}, fmt.Errorf("%w: station is required", domain.ErrInvalidQuery)
	}
	id := strings.ToUpper(ref)
	if tag, err := domain.ParsePITag(ref); err == nil {
		id = tag.StationID()
	}

	stations, err := s.Stations(ctx, plant)
	if err != nil {
		return domain.Station{}, err
	}
	for _, st := range stations {
		if st.ID == id {
			return st, nil
		}
	}
	return domain.Station{}, fmt.Errorf("%w: station %s not found in plant %s", ErrNoData, id, plant)
}
