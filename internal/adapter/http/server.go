package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/catalog"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/dashboard"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/observability"
)

// Dashboard is the view surface served by the API.
type Dashboard interface {
	TornadoChart(ctx context.Context, req dashboard.Request) (*dashboard.TornadoView, error)
	DailyChart(ctx context.Context, req dashboard.Request) (*dashboard.DailyView, error)
	EquipmentSummary(ctx context.Context, req dashboard.Request) (*dashboard.EquipmentView, error)
	Stations(ctx context.Context, plant string) ([]domain.Station, error)
	Metrics(tech domain.Technology) []catalog.Metric
}

// Checks combines readiness checks; the first failure is reported.
type Checks []sharedobs.ReadinessChecker

// CheckReadiness runs every check in order.
func (c Checks) CheckReadiness(ctx context.Context) error {
	for _, check := range c {
		if check == nil {
			continue
		}
		if err := check.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	dashboard  Dashboard
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API routes under /api/v1 and
// the /healthz, /readyz, and /metrics routes.
func NewServer(addr string, d Dashboard, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		dashboard: d,
		metrics:   metrics,
		logger:    logger,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.instrument(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/v1/plants/{plant}/stations", s.handleStations)
	mux.HandleFunc("GET /api/v1/plants/{plant}/tornado", s.handleTornado)
	mux.HandleFunc("GET /api/v1/plants/{plant}/stations/{station}/daily", s.handleDaily)
	mux.HandleFunc("GET /api/v1/plants/{plant}/equipment", s.handleEquipment)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
