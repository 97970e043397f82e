package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ws_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard service.
type Metrics struct {
	// Warehouse metrics.
	WarehouseQueries       *prometheus.CounterVec   // labels: table, outcome={success,error}
	WarehouseQueryDuration *prometheus.HistogramVec // labels: table

	// Cache metrics.
	CacheLookups     *prometheus.CounterVec // labels: table, result={hit,miss}
	CacheInvalidated prometheus.Counter

	// Chart assembly metrics.
	ChartBuilds   *prometheus.CounterVec // labels: kind={tornado,daily,equipment}, outcome={success,error,empty}
	ChartStations prometheus.Histogram
	SkippedTags   prometheus.Counter

	// Refresh listener metrics.
	RefreshEventsConsumed prometheus.Counter
	RefreshEventsInvalid  prometheus.Counter
	RefreshListenerActive prometheus.Gauge

	// HTTP metrics.
	HTTPRequestDuration *prometheus.HistogramVec // labels: route, status
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		WarehouseQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warehouse_queries_total",
			Help:      "Warehouse queries by table and outcome.",
		}, []string{"table", "outcome"}),
		WarehouseQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "warehouse_query_duration_seconds",
			Help:      "Warehouse query duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"table"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by table and result.",
		}, []string{"table", "result"}),
		CacheInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidated_entries_total",
			Help:      "Cached query results dropped after table refreshes.",
		}),
		ChartBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_builds_total",
			Help:      "Chart and table builds by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ChartStations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tornado_stations",
			Help:      "Number of weather stations per tornado chart.",
			Buckets:   []float64{1, 5, 10, 20, 40, 80, 160},
		}),
		SkippedTags: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_pi_tags_total",
			Help:      "Deviation columns dropped because their PI tag did not parse.",
		}),
		RefreshEventsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_events_consumed_total",
			Help:      "Table refresh notifications read from Kafka.",
		}),
		RefreshEventsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_events_invalid_total",
			Help:      "Table refresh notifications that could not be decoded.",
		}),
		RefreshListenerActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_listener_running",
			Help:      "1 when the refresh listener is active, 0 when shut down.",
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.WarehouseQueries,
		m.WarehouseQueryDuration,
		m.CacheLookups,
		m.CacheInvalidated,
		m.ChartBuilds,
		m.ChartStations,
		m.SkippedTags,
		m.RefreshEventsConsumed,
		m.RefreshEventsInvalid,
		m.RefreshListenerActive,
		m.HTTPRequestDuration,
	}
}
