package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/quakewatch/quake-analytics/internal/analytics"
	"github.com/quakewatch/quake-analytics/internal/domain"
)

// Query-parameter defaults.
const (
	defaultPeriod    = domain.Daily
	defaultBins      = 20
	defaultAlgorithm = analytics.AlgorithmDBSCAN
	defaultEps       = 5.0
	defaultGeoK      = 5
	defaultFeatureK  = 3
	defaultDays      = 7
	defaultModel     = analytics.ModelAuto
)

func (s *Server) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	tr, err := timeRange(r)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}

	g := defaultPeriod
	if raw := r.URL.Query().Get("period"); raw != "" {
		var ok bool
		if g, ok = domain.ParseGranularity(raw); !ok {
			s.respond(w, r, nil, fmt.Errorf("period must be daily, weekly, or monthly, got %q: %w",
				raw, domain.ErrInvalidParameters))
			return
		}
	}

	result, err := s.svc.Timeseries(r.Context(), g, tr)
	s.respond(w, r, result, err)
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	tr, err := timeRange(r)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	result, err := s.svc.Correlation(r.Context(), tr)
	s.respond(w, r, result, err)
}

func (s *Server) handleSeasonal(w http.ResponseWriter, r *http.Request) {
	tr, err := timeRange(r)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	result, err := s.svc.Seasonal(r.Context(), tr)
	s.respond(w, r, result, err)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	tr, err := timeRange(r)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	bins, err := intParam(r, "bins", defaultBins)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	result, err := s.svc.Distribution(r.Context(), bins, tr)
	s.respond(w, r, result, err)
}

func (s *Server) handleGeographicClusters(w http.ResponseWriter, r *http.Request) {
	tr, err := timeRange(r)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}

	params := analytics.GeographicParams{Algorithm: defaultAlgorithm, Eps: defaultEps, K: defaultGeoK}
	if raw := r.URL.Query().Get("algorithm"); raw != "" {
		var ok bool
		if params.Algorithm, ok = analytics.ParseClusterAlgorithm(raw); !ok {
			s.respond(w, r, nil, fmt.Errorf("algorithm must be dbscan or kmeans, got %q: %w",
				raw, domain.ErrInvalidParameters))
			return
		}
	}
	if params.Eps, err = floatParam(r, "eps", defaultEps); err != nil {
		s.respond(w, r, nil, err)
		return
	}
	if params.K, err = intParam(r, "n_clusters", defaultGeoK); err != nil {
		s.respond(w, r, nil, err)
		return
	}

	result, err := s.svc.GeographicClusters(r.Context(), params, tr)
	s.respond(w, r, result, err)
}

func (s *Server) handleMagnitudeClusters(w http.ResponseWriter, r *http.Request) {
	tr, err := timeRange(r)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	k, err := intParam(r, "n_clusters", defaultFeatureK)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	result, err := s.svc.MagnitudeClusters(r.Context(), k, tr)
	s.respond(w, r, result, err)
}

func (s *Server) handleRiskZones(w http.ResponseWriter, r *http.Request) {
	tr, err := timeRange(r)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	result, err := s.svc.RiskZones(r.Context(), tr)
	s.respond(w, r, result, err)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", defaultDays)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}

	model := defaultModel
	if raw := r.URL.Query().Get("model"); raw != "" {
		var ok bool
		if model, ok = analytics.ParseForecastModel(raw); !ok {
			s.respond(w, r, nil, fmt.Errorf("model must be auto, prophet, or arima, got %q: %w",
				raw, domain.ErrInvalidParameters))
			return
		}
	}

	result, err := s.svc.Forecast(r.Context(), days, model)
	s.respond(w, r, result, err)
}

func (s *Server) handleRiskForecast(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", defaultDays)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	result, err := s.svc.RiskForecast(r.Context(), days)
	s.respond(w, r, result, err)
}

func (s *Server) handleMagnitudeForecast(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", defaultDays)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	result, err := s.svc.MagnitudeForecast(r.Context(), days)
	s.respond(w, r, result, err)
}

func (s *Server) handleStoreStats(w http.ResponseWriter, r *http.Request) {
	tr, err := timeRange(r)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	result, err := s.svc.StoreStats(r.Context(), tr)
	s.respond(w, r, result, err)
}

func timeRange(r *http.Request) (analytics.TimeRange, error) {
	q := r.URL.Query()
	return analytics.ParseTimeRange(q.Get("start_date"), q.Get("end_date"))
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q: %w", name, raw, domain.ErrInvalidParameters)
	}
	return v, nil
}

func floatParam(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q: %w", name, raw, domain.ErrInvalidParameters)
	}
	return v, nil
}
