package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/catalog"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/dashboard"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type metricsResponse struct {
	Metrics []catalog.Metric `json:"metrics"`
}

type stationsResponse struct {
	Plant    string           `json:"plant"`
	Stations []domain.Station `json:"stations"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var tech domain.Technology
	if v := r.URL.Query().Get("technology"); v != "" {
		t, err := domain.ParseTechnology(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		tech = t
	}
	sharedobs.WriteJSON(w, http.StatusOK, metricsResponse{Metrics: s.dashboard.Metrics(tech)})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	plant := r.PathValue("plant")
	stations, err := s.dashboard.Stations(r.Context(), plant)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, stationsResponse{Plant: strings.ToUpper(plant), Stations: stations})
}

func (s *Server) handleTornado(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.dashboard.TornadoChart(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Station = r.PathValue("station")
	view, err := s.dashboard.DailyChart(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleEquipment(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.dashboard.EquipmentSummary(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

// parseRequest reads the path plant and the metric, from, to, blocks and
// technology query parameters. Blocks may be repeated or comma separated.
func parseRequest(r *http.Request) (dashboard.Request, error) {
	q := r.URL.Query()
	req := dashboard.Request{
		Plant:  r.PathValue("plant"),
		Metric: q.Get("metric"),
		Blocks: splitList(q["blocks"]),
	}

	var err error
	if req.From, err = parseOptionalDay(q, "from"); err != nil {
		return dashboard.Request{}, err
	}
	if req.To, err = parseOptionalDay(q, "to"); err != nil {
		return dashboard.Request{}, err
	}
	if v := q.Get("technology"); v != "" {
		if req.Technology, err = domain.ParseTechnology(v); err != nil {
			return dashboard.Request{}, err
		}
	}
	return req, nil
}

func parseOptionalDay(q url.Values, key string) (time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	return domain.ParseDay(v)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	id := RequestID(r.Context())
	switch {
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, catalog.ErrUnknownMetric):
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), RequestID: id})
	case errors.Is(err, dashboard.ErrNoData):
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), RequestID: id})
	default:
		s.logger.Error("request failed", "request_id", id, "path", r.URL.Path, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", RequestID: id})
	}
}
