package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/quakewatch/quake-analytics/internal/adapter/http"
	"github.com/quakewatch/quake-analytics/internal/analytics"
	"github.com/quakewatch/quake-analytics/internal/domain"
	"github.com/quakewatch/quake-analytics/internal/observability"
	"github.com/quakewatch/quake-analytics/internal/store"
	"github.com/quakewatch/quake-analytics/internal/timeseries"
)

// stubAnalytics returns canned results, or err from every operation when set.
type stubAnalytics struct {
	err      error
	readyErr error

	gotGranularity domain.Granularity
	gotBins        int
	gotParams      analytics.GeographicParams
	gotDays        int
	gotModel       analytics.ForecastModel
}

func (s *stubAnalytics) Timeseries(_ context.Context, g domain.Granularity, _ analytics.TimeRange) (analytics.TimeseriesResult, error) {
	s.gotGranularity = g
	return analytics.TimeseriesResult{Period: string(g), Data: []domain.SeriesPoint{}}, s.err
}

func (s *stubAnalytics) Correlation(context.Context, analytics.TimeRange) (timeseries.CorrelationResult, error) {
	return timeseries.CorrelationResult{Variables: timeseries.CorrelationVariables}, s.err
}

func (s *stubAnalytics) Seasonal(context.Context, analytics.TimeRange) (analytics.SeasonalResult, error) {
	return analytics.SeasonalResult{Model: "additive", Period: 12}, s.err
}

func (s *stubAnalytics) Distribution(_ context.Context, bins int, _ analytics.TimeRange) (analytics.DistributionResult, error) {
	s.gotBins = bins
	return analytics.DistributionResult{}, s.err
}

func (s *stubAnalytics) GeographicClusters(_ context.Context, p analytics.GeographicParams, _ analytics.TimeRange) (analytics.GeographicResult, error) {
	s.gotParams = p
	return analytics.GeographicResult{Algorithm: string(p.Algorithm)}, s.err
}

func (s *stubAnalytics) MagnitudeClusters(_ context.Context, k int, _ analytics.TimeRange) (analytics.MagnitudeResult, error) {
	return analytics.MagnitudeResult{NClusters: k}, s.err
}

func (s *stubAnalytics) RiskZones(context.Context, analytics.TimeRange) (analytics.RiskZonesResult, error) {
	return analytics.RiskZonesResult{Zones: []domain.RiskZone{}}, s.err
}

func (s *stubAnalytics) Forecast(_ context.Context, days int, model analytics.ForecastModel) (analytics.ForecastResult, error) {
	s.gotDays = days
	s.gotModel = model
	return analytics.ForecastResult{ModelUsed: "holt_winters"}, s.err
}

func (s *stubAnalytics) RiskForecast(_ context.Context, days int) (analytics.RiskForecastResult, error) {
	s.gotDays = days
	return analytics.RiskForecastResult{ModelUsed: "holt_winters"}, s.err
}

func (s *stubAnalytics) MagnitudeForecast(_ context.Context, days int) (analytics.MagnitudeForecastResult, error) {
	s.gotDays = days
	return analytics.MagnitudeForecastResult{ModelUsed: "holt_winters"}, s.err
}

func (s *stubAnalytics) StoreStats(context.Context, analytics.TimeRange) (store.Stats, error) {
	return store.Stats{TotalCount: 42}, s.err
}

func (s *stubAnalytics) CheckReadiness(context.Context) error { return s.readyErr }

func newTestServer(stub *stubAnalytics) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", stub, logger, observability.NewMetricsForTesting())
}

func get(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(&stubAnalytics{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns503WhenStoreUnreachable(t *testing.T) {
	rec := get(t, newTestServer(&stubAnalytics{readyErr: fmt.Errorf("connection refused")}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(&stubAnalytics{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTimeseriesDefaultsToDaily(t *testing.T) {
	stub := &stubAnalytics{}
	rec := get(t, newTestServer(stub), "/analysis/timeseries")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Daily, stub.gotGranularity)
}

func TestTimeseriesRejectsUnknownPeriod(t *testing.T) {
	rec := get(t, newTestServer(&stubAnalytics{}), "/analysis/timeseries?period=hourly")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMalformedDateIs400(t *testing.T) {
	rec := get(t, newTestServer(&stubAnalytics{}), "/analysis/correlation?start_date=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestInsufficientDataIs422(t *testing.T) {
	stub := &stubAnalytics{err: fmt.Errorf("five months: %w", domain.ErrInsufficientData)}
	rec := get(t, newTestServer(stub), "/analysis/seasonal")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpstreamUnavailableIs502(t *testing.T) {
	stub := &stubAnalytics{err: domain.ErrUpstreamUnavailable}
	rec := get(t, newTestServer(stub), "/clusters/risk-zones")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUnexpectedErrorIs500(t *testing.T) {
	stub := &stubAnalytics{err: fmt.Errorf("boom")}
	rec := get(t, newTestServer(stub), "/analysis/distribution")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDistributionPassesBinsThrough(t *testing.T) {
	stub := &stubAnalytics{}
	rec := get(t, newTestServer(stub), "/analysis/distribution?bins=42")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 42, stub.gotBins)
}

func TestDistributionRejectsNonNumericBins(t *testing.T) {
	rec := get(t, newTestServer(&stubAnalytics{}), "/analysis/distribution?bins=many")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeographicClustersParsesParams(t *testing.T) {
	stub := &stubAnalytics{}
	rec := get(t, newTestServer(stub), "/clusters/geographic?algorithm=kmeans&n_clusters=4&eps=2.5")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analytics.AlgorithmKMeans, stub.gotParams.Algorithm)
	assert.Equal(t, 4, stub.gotParams.K)
	assert.InDelta(t, 2.5, stub.gotParams.Eps, 1e-9)
}

func TestGeographicClustersDefaultsToDBSCAN(t *testing.T) {
	stub := &stubAnalytics{}
	rec := get(t, newTestServer(stub), "/clusters/geographic")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analytics.AlgorithmDBSCAN, stub.gotParams.Algorithm)
	assert.InDelta(t, 5.0, stub.gotParams.Eps, 1e-9)
}

func TestForecastParsesDaysAndModel(t *testing.T) {
	stub := &stubAnalytics{}
	rec := get(t, newTestServer(stub), "/predictions/forecast?days=14&model=arima")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 14, stub.gotDays)
	assert.Equal(t, analytics.ModelARIMA, stub.gotModel)
}

func TestForecastDefaults(t *testing.T) {
	stub := &stubAnalytics{}
	rec := get(t, newTestServer(stub), "/predictions/forecast")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, stub.gotDays)
	assert.Equal(t, analytics.ModelAuto, stub.gotModel)
}

func TestForecastRejectsUnknownModel(t *testing.T) {
	rec := get(t, newTestServer(&stubAnalytics{}), "/predictions/forecast?model=lstm")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResponsesCarryRequestID(t *testing.T) {
	rec := get(t, newTestServer(&stubAnalytics{}), "/healthz")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProvidedRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(&stubAnalytics{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")

	srv.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestRecordsStatsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(&stubAnalytics{}), "/records/stats")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body store.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 42, body.TotalCount)
}
