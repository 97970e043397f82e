package main

import (
	"context"
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

type plant struct {
	code        string
	tech        domain.Technology
	blocks      int
	pcsPerBlock int
	turbines    int
	lat, lon    float64
}

var plants = []plant{
	{code: "SUN1", tech: domain.Solar, blocks: 3, pcsPerBlock: 2, lat: 35.05, lon: -115.25},
	{code: "WND1", tech: domain.Wind, blocks: 2, turbines: 3, lat: 41.10, lon: -100.40},
}

type station struct {
	id, block, pcs, ws string
	bias, tempBias     float64
}

// frame collects the rows of one table before insertion.
type frame struct {
	cols []string
	rows [][]any
}

func (f *frame) add(values ...any) { f.rows = append(f.rows, values) }

type generator struct {
	rng      *rand.Rand
	from, to time.Time
	frames   map[string]*frame
}

func newGenerator(seed uint64, from, to time.Time) *generator {
	return &generator{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		from: from,
		to:   to,
		frames: map[string]*frame{
			warehouse.TableStations: {cols: []string{"station_id", "plant", "block", "pcs", "ws", "pi_tag", "label", "technology", "lat", "lon"}},
			warehouse.TableDaily: {cols: []string{"station_id", "plant", "block", "day",
				"ghi_site_sum", "ghi_ref_sum", "ghi_diff_pct", "poa_site_sum", "poa_ref_sum", "poa_diff_pct",
				"temp_site_avg", "temp_ref_avg", "temp_diff_avg",
				"wind_speed_site_avg", "wind_speed_ref_avg", "wind_speed_diff_pct"}},
			warehouse.TableRecovery:  {cols: []string{"station_id", "plant", "block", "day", "lost_kwh_sum", "recovered_kwh_sum"}},
			warehouse.TableBudget:    {cols: []string{"plant", "block", "month", "budget_kwh_sum", "actual_kwh_sum"}},
			warehouse.TableClearSky:  {cols: []string{"station_id", "plant", "day", "csr_ratio"}},
			warehouse.TableInverters: {cols: []string{"plant", "block", "pcs", "day", "energy_sum", "availability_pct", "pr_pct"}},
			warehouse.TableTurbines:  {cols: []string{"plant", "block", "turbine", "day", "energy_sum", "availability_pct", "wind_speed_avg"}},
		},
	}
}

// write replaces the seeded plants in db and returns the rows written per
// table.
func (g *generator) write(ctx context.Context, db *sqlx.DB) (map[string]int, error) {
	for _, p := range plants {
		g.plant(p)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range warehouse.Tables {
		for _, p := range plants {
			if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE plant = ?"), p.code); err != nil {
				return nil, fmt.Errorf("clear %s: %w", table, err)
			}
		}
	}

	counts := make(map[string]int, len(g.frames))
	for _, table := range warehouse.Tables {
		f := g.frames[table]
		if err := insert(ctx, tx, table, f); err != nil {
			return nil, err
		}
		counts[table] = len(f.rows)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seed: %w", err)
	}
	return counts, nil
}

func insert(ctx context.Context, tx *sqlx.Tx, table string, f *frame) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.cols)), ", ")
	query := tx.Rebind("INSERT INTO " + table + " (" + strings.Join(f.cols, ", ") + ") VALUES (" + placeholders + ")")
	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer stmt.Close() //nolint:errcheck // statement close

	for _, row := range f.rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func (g *generator) plant(p plant) {
	stations := g.stations(p)
	monthly := map[string]map[string]float64{}

	for day := g.from; !day.After(g.to); day = day.AddDate(0, 0, 1) {
		key := day.Format(domain.DayLayout)
		season := math.Sin(2 * math.Pi * float64(day.YearDay()-80) / 365)

		var energy map[string]float64
		if p.tech == domain.Solar {
			energy = g.solarDay(p, stations, key, season)
		} else {
			energy = g.windDay(p, stations, key, season)
		}

		month := day.Format(domain.MonthLayout)
		if monthly[month] == nil {
			monthly[month] = map[string]float64{}
		}
		for _, block := range slices.Sorted(maps.Keys(energy)) {
			monthly[month][block] += energy[block]
			monthly[month][domain.PlantLevel] += energy[block]
		}

		for _, st := range stations {
			lost := 0.0
			if g.rng.Float64() < 0.2 {
				lost = 20 + g.rng.Float64()*200
			}
			g.frames[warehouse.TableRecovery].add(st.id, p.code, st.block, key, round(lost), round(lost*(0.3+0.6*g.rng.Float64())))
		}
	}

	for _, month := range slices.Sorted(maps.Keys(monthly)) {
		blocks := monthly[month]
		for _, block := range slices.Sorted(maps.Keys(blocks)) {
			actual := blocks[block]
			budget := actual * (1 + 0.08*(2*g.rng.Float64()-1))
			g.frames[warehouse.TableBudget].add(p.code, block, month, round(budget), round(actual))
		}
	}
}

// stations registers one WS per PCS (solar) or per block (wind). Solar plants
// also get a met station without a PCS in the last block.
func (g *generator) stations(p plant) []station {
	var out []station
	ws := 0
	addStation := func(block, pcs string) {
		ws++
		st := station{
			block:    block,
			pcs:      pcs,
			ws:       fmt.Sprintf("WS%02d", ws),
			bias:     0.06 * (2*g.rng.Float64() - 1),
			tempBias: 1.5 * (2*g.rng.Float64() - 1),
		}
		st.id = domain.StationID(st.block, st.pcs, st.ws)
		measurement := "GHI"
		if p.tech == domain.Wind {
			measurement = "WSPD"
		}
		tag := p.code + "-" + st.id + "-" + measurement
		label := st.id
		if parsed, err := domain.ParsePITag(tag); err == nil {
			label = parsed.Label()
		}
		g.frames[warehouse.TableStations].add(st.id, p.code, st.block, st.pcs, st.ws, tag, label, string(p.tech),
			round(p.lat+0.01*float64(ws)), round(p.lon-0.01*float64(ws)))
		out = append(out, st)
	}

	for b := 1; b <= p.blocks; b++ {
		block := fmt.Sprintf("B%02d", b)
		if p.tech == domain.Wind {
			addStation(block, "")
			continue
		}
		for c := 1; c <= p.pcsPerBlock; c++ {
			addStation(block, fmt.Sprintf("PCS%02d", (b-1)*p.pcsPerBlock+c))
		}
	}
	if p.tech == domain.Solar {
		addStation(fmt.Sprintf("B%02d", p.blocks), "")
	}
	return out
}

// solarDay writes the station, clear-sky and inverter rows of one day and
// returns the energy per block.
func (g *generator) solarDay(p plant, stations []station, day string, season float64) map[string]float64 {
	csr := 0.85 + 0.15*g.rng.Float64()
	if g.rng.Float64() < 0.35 {
		csr = 0.2 + 0.6*g.rng.Float64()
	}
	clearGHI := 6.5 + 2*season
	refGHI := clearGHI * csr * (1 + g.noise(0.02))
	refTemp := 22 + 8*season + g.noise(2)

	for _, st := range stations {
		siteGHI := refGHI * (1 + st.bias + g.noise(0.03))
		var site, ref, diff any = round(siteGHI), round(refGHI), round((siteGHI - refGHI) / refGHI * 100)
		if g.rng.Float64() < 0.03 {
			site, diff = nil, nil
		} else if g.rng.Float64() < 0.02 {
			ref = nil
		}
		sitePOA := siteGHI * 1.25 * (1 + g.noise(0.01))
		refPOA := refGHI * 1.25
		siteTemp := refTemp + st.tempBias + g.noise(0.5)

		g.frames[warehouse.TableDaily].add(st.id, p.code, st.block, day,
			site, ref, diff,
			round(sitePOA), round(refPOA), round((sitePOA-refPOA)/refPOA*100),
			round(siteTemp), round(refTemp), round(siteTemp-refTemp),
			nil, nil, nil)
		g.frames[warehouse.TableClearSky].add(st.id, p.code, day, round(clamp(csr+g.noise(0.02), 0, 1)))
	}

	energy := map[string]float64{}
	for b := 1; b <= p.blocks; b++ {
		block := fmt.Sprintf("B%02d", b)
		for c := 1; c <= p.pcsPerBlock; c++ {
			pcs := fmt.Sprintf("PCS%02d", (b-1)*p.pcsPerBlock+c)
			avail := 100 - 1.5*g.rng.Float64()
			if g.rng.Float64() < 0.1 {
				avail = 100 - 15*g.rng.Float64()
			}
			pr := 80 + g.noise(2) - (100-avail)*0.3
			kwh := 1000 * refGHI * pr / 100 * avail / 100
			energy[block] += kwh
			g.frames[warehouse.TableInverters].add(p.code, block, pcs, day, round(kwh), round(avail), round(pr))
		}
	}
	return energy
}

// windDay writes the station and turbine rows of one day and returns the
// energy per block.
func (g *generator) windDay(p plant, stations []station, day string, season float64) map[string]float64 {
	refWind := math.Max(1, 7+1.5*season+g.noise(1.5))

	for _, st := range stations {
		site := refWind * (1 + st.bias + g.noise(0.05))
		g.frames[warehouse.TableDaily].add(st.id, p.code, st.block, day,
			nil, nil, nil, nil, nil, nil, nil, nil, nil,
			round(site), round(refWind), round((site-refWind)/refWind*100))
	}

	energy := map[string]float64{}
	for b := 1; b <= p.blocks; b++ {
		block := fmt.Sprintf("B%02d", b)
		for t := 1; t <= p.turbines; t++ {
			wind := math.Max(0, refWind+g.noise(0.5))
			avail := 100 - 3*g.rng.Float64()
			kwh := math.Min(2000*math.Pow(wind/8, 3), 6000) * 24 / 10 * avail / 100
			energy[block] += kwh
			g.frames[warehouse.TableTurbines].add(p.code, block, fmt.Sprintf("T%02d", (b-1)*p.turbines+t), day,
				round(kwh), round(avail), round(wind))
		}
	}
	return energy
}

// noise is uniform in [-spread, spread].
func (g *generator) noise(spread float64) float64 {
	return spread * (2*g.rng.Float64() - 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round(v float64) float64 {
	return domain.Round(v, 3)
}
