package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-data-radar/internal/pipeline"
)

// StatusSource reports the newest gridded product of each sensor.
type StatusSource interface {
	Statuses() []pipeline.Status
	SensorStatus(sensorID string) (pipeline.Status, bool)
}

// Server serves probes, Prometheus metrics, and per-sensor gridding status.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the service mux:
//
//	GET /healthz           liveness
//	GET /readyz            503 until the first grid is published
//	GET /metrics           Prometheus
//	GET /status            newest product of every sensor
//	GET /status/{sensor}   newest product of one sensor
//
// A nil status source serves empty status routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, status StatusSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	h := statusHandlers{source: status}
	mux.HandleFunc("GET /status", h.all)
	mux.HandleFunc("GET /status/{sensor}", h.sensor)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type statusHandlers struct {
	source StatusSource
}

type statusList struct {
	Sensors []pipeline.Status `json:"sensors"`
}

func (h statusHandlers) all(w http.ResponseWriter, _ *http.Request) {
	var statuses []pipeline.Status
	if h.source != nil {
		statuses = h.source.Statuses()
	}
	if len(statuses) == 0 {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "no grids produced yet",
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, statusList{Sensors: statuses})
}

func (h statusHandlers) sensor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sensor")
	if h.source != nil {
		if s, ok := h.source.SensorStatus(id); ok {
			sharedobs.WriteJSON(w, http.StatusOK, s)
			return
		}
	}
	sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{
		"status":    "no grids for sensor",
		"sensor_id": id,
	})
}
