// Command seed builds a local sqlite warehouse with deterministic mock data
// for a solar plant (SUN1) and a wind plant (WND1), so the dashboard can run
// without access to the real warehouse.
//
// Usage:
//
//	go run ./cmd/seed -dsn file:warehouse.db -days 90
//
// With -publish, a refresh event per table is sent to KAFKA_BROKERS so
// running dashboards drop their cached results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	kafkaadapter "github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/config"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dsn := flag.String("dsn", "file:warehouse.db", "sqlite DSN of the warehouse to build")
	days := flag.Int("days", 90, "number of days to generate, ending yesterday")
	end := flag.String("end", "", "last generated day (YYYY-MM-DD), default yesterday")
	seed := flag.Uint64("seed", 42, "random seed")
	publish := flag.Bool("publish", false, "publish refresh events to KAFKA_BROKERS")
	flag.Parse()

	if *days <= 0 || *days > domain.MaxRangeDays*2 {
		return fmt.Errorf("-days must be between 1 and %d", domain.MaxRangeDays*2)
	}
	to := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)
	if *end != "" {
		t, err := domain.ParseDay(*end)
		if err != nil {
			return err
		}
		to = t
	}

	ctx := context.Background()
	db, err := warehouse.Open(ctx, warehouse.DriverSQLite, *dsn)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exit

	if err := warehouse.Bootstrap(ctx, db); err != nil {
		return err
	}

	g := newGenerator(*seed, to.AddDate(0, 0, -(*days-1)), to)
	counts, err := g.write(ctx, db)
	if err != nil {
		return err
	}
	for _, table := range warehouse.Tables {
		log.Printf("%s: %d rows", table, counts[table])
	}

	if *publish {
		return publishRefresh(ctx, clockwork.NewRealClock())
	}
	return nil
}

// publishRefresh announces every seeded table for every plant.
func publishRefresh(ctx context.Context, clock clockwork.Clock) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("-publish needs KAFKA_BROKERS")
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	writer := kafkaadapter.NewWriter(cfg, logger)
	defer writer.Close() //nolint:errcheck // best-effort close

	events := refreshEvents(clock.Now().UTC())
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := writer.Publish(ctx, events...); err != nil {
		return err
	}
	log.Printf("published %d refresh events to %s", len(events), cfg.KafkaRefreshTopic)
	return nil
}

func refreshEvents(at time.Time) []domain.RefreshEvent {
	events := make([]domain.RefreshEvent, 0, len(warehouse.Tables)*len(plants))
	for _, p := range plants {
		for _, table := range warehouse.Tables {
			events = append(events, domain.RefreshEvent{Table: table, Plant: p.code, RefreshedAt: at})
		}
	}
	return events
}
