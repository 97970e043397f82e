package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/catalog"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/chart"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

// TornadoView is the deviation ranking of every station of a plant.
type TornadoView struct {
	Plant  string         `json:"plant"`
	Metric catalog.Metric `json:"metric"`
	Range  Range          `json:"range"`
	chart.TornadoResult
}

// tornadoFrames are the warehouse results behind one tornado chart.
type tornadoFrames struct {
	all, clearSky                domain.Table
	recovery, budget, csr, avail domain.Table
}

// TornadoChart ranks the plant's stations by the metric's deviation over the
// range, overlaying the deviation on clear-sky days only.
func (s *Service) TornadoChart(ctx context.Context, req Request) (_ *TornadoView, err error) {
	defer func() { s.observeBuild("tornado", err) }()

	metric, err := s.catalog.Lookup(req.Metric)
	if err != nil {
		return nil, err
	}
	req.Metric = metric.Code
	req.Technology = metric.Technology
	q, err := s.query(req)
	if err != nil {
		return nil, err
	}

	frames, err := s.fetchTornado(ctx, q, metric)
	if err != nil {
		return nil, err
	}
	if frames.all.Empty() {
		return nil, fmt.Errorf("%w: plant %s has no %s stations", ErrNoData, q.Plant, metric.Technology)
	}

	info := s.metricInfo(metric)
	res := chart.Tornado(chart.TornadoInput{
		Title:     fmt.Sprintf("%s deviation vs SolarAnywhere, %s to %s", metric.Label, q.FromKey(), q.ToKey()),
		Metric:    info,
		Deviation: deviationFrame(frames.all, metric, info.Relative),
		ClearSky:  deviationFrame(frames.clearSky, metric, info.Relative),
		Lookups:   buildLookups(frames, metric),
		Palette:   s.opts.Palette,
	})

	if len(res.Skipped) > 0 {
		s.logger.Warn("skipped columns that are not PI tags",
			"plant", q.Plant, "metric", metric.Code, "columns", res.Skipped)
		if s.metrics != nil {
			s.metrics.SkippedTags.Add(float64(len(res.Skipped)))
		}
	}
	if s.metrics != nil {
		s.metrics.ChartStations.Observe(float64(len(res.Bars)))
	}
	s.logger.Debug("tornado chart built",
		"plant", q.Plant, "metric", metric.Code, "stations", len(res.Bars), "from", q.FromKey(), "to", q.ToKey())

	return &TornadoView{Plant: q.Plant, Metric: metric, Range: rangeOf(q), TornadoResult: res}, nil
}

// fetchTornado runs the aggregate and lookup queries concurrently.
func (s *Service) fetchTornado(ctx context.Context, q domain.Query, metric catalog.Metric) (tornadoFrames, error) {
	var f tornadoFrames
	cols := metric.Columns()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		f.all, err = s.repo.StationAggregates(gctx, q, cols, false)
		return err
	})
	g.Go(func() (err error) {
		f.clearSky, err = s.repo.StationAggregates(gctx, q, cols, true)
		return err
	})
	g.Go(func() (err error) {
		f.recovery, err = s.repo.Recovery(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		f.budget, err = s.repo.BudgetDeviation(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		f.csr, err = s.repo.ClearSky(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		f.avail, err = s.repo.EquipmentAvailability(gctx, q, metric.Technology)
		return err
	})

	if err := g.Wait(); err != nil {
		return tornadoFrames{}, fmt.Errorf("fetch tornado data: %w", err)
	}
	return f, nil
}

// deviationFrame turns per-station aggregates into the single-row frame the
// chart expects: one column per PI tag holding that station's deviation.
func deviationFrame(agg domain.Table, metric catalog.Metric, relative bool) domain.Table {
	cols := make([]string, 0, agg.Len())
	values := make([]any, 0, agg.Len())
	for r := 0; r < agg.Len(); r++ {
		tag := agg.String(r, "pi_tag")
		if tag == "" {
			continue
		}
		cols = append(cols, tag)
		if d, ok := stationDeviation(agg, r, metric, relative); ok {
			values = append(values, d)
		} else {
			values = append(values, nil)
		}
	}
	return domain.SingleRow(cols, values)
}

// stationDeviation compares the aggregated site and reference values and
// falls back to the aggregated daily deviation when either is missing.
func stationDeviation(agg domain.Table, r int, metric catalog.Metric, relative bool) (float64, bool) {
	site, siteOK := agg.Float(r, metric.SiteColumn)
	ref, refOK := agg.Float(r, metric.ReferenceColumn)
	if siteOK && refOK {
		if d, ok := chart.Deviation(site, ref, relative); ok {
			return d, true
		}
	}
	return agg.Float(r, metric.DailyColumn)
}

func buildLookups(f tornadoFrames, metric catalog.Metric) chart.Lookups {
	return chart.Lookups{
		SiteValue:      chart.KeyedValues(f.all, metric.SiteColumn, "station_id"),
		ReferenceValue: chart.KeyedValues(f.all, metric.ReferenceColumn, "station_id"),
		RecoveryPct:    ratioPct(f.recovery, "recovered_kwh_sum", "lost_kwh_sum", "station_id", false),
		BudgetPct:      ratioPct(f.budget, "actual_kwh_sum", "budget_kwh_sum", "block", true),
		ClearSkyRatio:  chart.KeyedValues(f.csr, "csr_ratio", "station_id"),
		ClearSkyDays:   chart.KeyedCounts(f.csr, "clear_day_cnt", "station_id"),
		Availability:   chart.KeyedValues(f.avail, "availability_pct", "block", "pcs"),
	}
}

// ratioPct computes num/den in percent per key, or the percent deviation of
// num from den when deviation is set. Rows with a zero denominator are left
// out.
func ratioPct(t domain.Table, num, den, key string, deviation bool) map[string]float64 {
	out := make(map[string]float64, t.Len())
	for r := 0; r < t.Len(); r++ {
		n, nok := t.Float(r, num)
		d, dok := t.Float(r, den)
		if !nok || !dok || d == 0 {
			continue
		}
		if deviation {
			out[t.String(r, key)] = (n - d) / d * 100
		} else {
			out[t.String(r, key)] = n / d * 100
		}
	}
	return out
}
