// Package http exposes the analytics operations as a JSON API, plus health,
// readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quakewatch/quake-analytics/internal/analytics"
	"github.com/quakewatch/quake-analytics/internal/domain"
	"github.com/quakewatch/quake-analytics/internal/observability"
	"github.com/quakewatch/quake-analytics/internal/store"
	"github.com/quakewatch/quake-analytics/internal/timeseries"
)

// Analytics is the contract the HTTP layer consumes.
type Analytics interface {
	Timeseries(ctx context.Context, g domain.Granularity, tr analytics.TimeRange) (analytics.TimeseriesResult, error)
	Correlation(ctx context.Context, tr analytics.TimeRange) (timeseries.CorrelationResult, error)
	Seasonal(ctx context.Context, tr analytics.TimeRange) (analytics.SeasonalResult, error)
	Distribution(ctx context.Context, bins int, tr analytics.TimeRange) (analytics.DistributionResult, error)
	GeographicClusters(ctx context.Context, p analytics.GeographicParams, tr analytics.TimeRange) (analytics.GeographicResult, error)
	MagnitudeClusters(ctx context.Context, k int, tr analytics.TimeRange) (analytics.MagnitudeResult, error)
	RiskZones(ctx context.Context, tr analytics.TimeRange) (analytics.RiskZonesResult, error)
	Forecast(ctx context.Context, days int, model analytics.ForecastModel) (analytics.ForecastResult, error)
	RiskForecast(ctx context.Context, days int) (analytics.RiskForecastResult, error)
	MagnitudeForecast(ctx context.Context, days int) (analytics.MagnitudeForecastResult, error)
	StoreStats(ctx context.Context, tr analytics.TimeRange) (store.Stats, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the analytics API.
type Server struct {
	httpServer *http.Server
	svc        Analytics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with all analytics routes registered.
func NewServer(addr string, svc Analytics, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      instrument(mux, logger, metrics),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /analysis/timeseries", s.handleTimeseries)
	mux.HandleFunc("GET /analysis/correlation", s.handleCorrelation)
	mux.HandleFunc("GET /analysis/seasonal", s.handleSeasonal)
	mux.HandleFunc("GET /analysis/distribution", s.handleDistribution)
	mux.HandleFunc("GET /clusters/geographic", s.handleGeographicClusters)
	mux.HandleFunc("GET /clusters/magnitude", s.handleMagnitudeClusters)
	mux.HandleFunc("GET /clusters/risk-zones", s.handleRiskZones)
	mux.HandleFunc("GET /predictions/forecast", s.handleForecast)
	mux.HandleFunc("GET /predictions/risk-forecast", s.handleRiskForecast)
	mux.HandleFunc("GET /predictions/magnitude-forecast", s.handleMagnitudeForecast)
	mux.HandleFunc("GET /records/stats", s.handleStoreStats)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// respond maps domain errors onto HTTP statuses and writes the payload.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidParameters):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
