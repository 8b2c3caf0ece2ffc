package analytics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakewatch/quake-analytics/internal/cache"
	"github.com/quakewatch/quake-analytics/internal/domain"
	"github.com/quakewatch/quake-analytics/internal/observability"
	"github.com/quakewatch/quake-analytics/internal/store"
)

type mockStore struct {
	records []domain.EventRecord
	queries int
	pingErr error
	err     error
}

func (m *mockStore) Query(_ context.Context, f store.Filter) ([]domain.EventRecord, error) {
	m.queries++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.EventRecord
	for _, r := range m.records {
		if !f.Start.IsZero() && r.Time.Before(f.Start) {
			continue
		}
		if !f.End.IsZero() && r.Time.After(f.End) {
			continue
		}
		if f.RequireMagnitude && !r.HasMagnitude() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockStore) Stats(_ context.Context, _, _ time.Time) (store.Stats, error) {
	return store.Stats{TotalCount: len(m.records)}, m.err
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func newTestService(ms *mockStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(ms, cache.NewMemory(100, nil), logger, observability.NewMetricsForTesting(), 5*time.Minute)
}

func mag(v float64) *float64 { return &v }

// eventAt builds one record n days after the series anchor.
func eventAt(base time.Time, dayOffset int, m float64, lat, lon, depth float64) domain.EventRecord {
	return domain.EventRecord{
		ID:           time.Duration(dayOffset).String() + "-ev",
		Time:         base.AddDate(0, 0, dayOffset),
		Latitude:     lat,
		Longitude:    lon,
		Depth:        depth,
		Magnitude:    mag(m),
		Significance: int(m * 100),
	}
}

func TestTimeseriesEmptyStoreYieldsEmptySeries(t *testing.T) {
	svc := newTestService(&mockStore{})

	result, err := svc.Timeseries(context.Background(), domain.Daily, TimeRange{})
	require.NoError(t, err)
	assert.Equal(t, "daily", result.Period)
	assert.Empty(t, result.Data)
	assert.Nil(t, result.Trend)
	assert.Nil(t, result.Summary)
}

func TestTimeseriesComputesSeriesTrendAndSummary(t *testing.T) {
	base := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	ms := &mockStore{records: []domain.EventRecord{
		eventAt(base, 0, 4.0, 35, -118, 10),
		eventAt(base, 1, 5.0, 36, -119, 20),
		eventAt(base, 2, 6.0, 37, -120, 30),
	}}
	svc := newTestService(ms)

	result, err := svc.Timeseries(context.Background(), domain.Daily, TimeRange{})
	require.NoError(t, err)

	require.Len(t, result.Data, 3)
	require.NotNil(t, result.Trend)
	assert.InDelta(t, 0.0, result.Trend.Slope, 1e-9) // one event per day
	require.NotNil(t, result.Summary)
	assert.Equal(t, 3, result.Summary.TotalEarthquakes)
	assert.InDelta(t, 5.0, result.Summary.OverallAvgMagnitude, 1e-9)
	assert.InDelta(t, 6.0, result.Summary.OverallMaxMagnitude, 1e-9)
}

func TestSecondCallServedFromCache(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ms := &mockStore{records: []domain.EventRecord{
		eventAt(base, 0, 4.0, 35, -118, 10),
		eventAt(base, 1, 5.0, 36, -119, 20),
	}}
	svc := newTestService(ms)
	ctx := context.Background()

	first, err := svc.Timeseries(ctx, domain.Daily, TimeRange{})
	require.NoError(t, err)
	second, err := svc.Timeseries(ctx, domain.Daily, TimeRange{})
	require.NoError(t, err)

	assert.Equal(t, 1, ms.queries)
	assert.Equal(t, first.Data, second.Data)
}

func TestDifferentParamsBypassEachOthersCache(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ms := &mockStore{records: []domain.EventRecord{
		eventAt(base, 0, 4.0, 35, -118, 10),
		eventAt(base, 8, 5.0, 36, -119, 20),
	}}
	svc := newTestService(ms)
	ctx := context.Background()

	_, err := svc.Timeseries(ctx, domain.Daily, TimeRange{})
	require.NoError(t, err)
	_, err = svc.Timeseries(ctx, domain.Weekly, TimeRange{})
	require.NoError(t, err)

	assert.Equal(t, 2, ms.queries)
}

func TestStoreErrorSurfacesAsUpstreamUnavailable(t *testing.T) {
	ms := &mockStore{err: domain.ErrUpstreamUnavailable}
	svc := newTestService(ms)

	_, err := svc.Timeseries(context.Background(), domain.Daily, TimeRange{})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestSeasonalNeedsTwelveMonthlyPeriods(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.EventRecord
	for m := 0; m < 5; m++ {
		records = append(records, eventAt(base, 30*m, 4.5, 35, -118, 10))
	}
	svc := newTestService(&mockStore{records: records})

	_, err := svc.Seasonal(context.Background(), TimeRange{})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestSeasonalDecomposesLongHistory(t *testing.T) {
	base := time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC)
	var records []domain.EventRecord
	for m := 0; m < 30; m++ {
		monthStart := base.AddDate(0, m, 0)
		// Event count varies with the month so the seasonal component is real.
		for e := 0; e <= m%4; e++ {
			records = append(records, eventAt(monthStart, e, 4.0+float64(e)*0.3, 35, -118, 10))
		}
	}
	svc := newTestService(&mockStore{records: records})

	result, err := svc.Seasonal(context.Background(), TimeRange{})
	require.NoError(t, err)
	assert.Equal(t, "additive", result.Model)
	assert.Equal(t, 12, result.Period)
	assert.Equal(t, 30, result.Summary.TotalMonths)
	assert.Greater(t, result.Summary.AvgPerMonth, 1.0)
}

func TestDistributionRejectsBadBinCount(t *testing.T) {
	svc := newTestService(&mockStore{})
	_, err := svc.Distribution(context.Background(), 3, TimeRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestGeographicClustersRejectsBadParams(t *testing.T) {
	svc := newTestService(&mockStore{})
	ctx := context.Background()

	_, err := svc.GeographicClusters(ctx, GeographicParams{Algorithm: AlgorithmDBSCAN, Eps: -1}, TimeRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)

	_, err = svc.GeographicClusters(ctx, GeographicParams{Algorithm: AlgorithmKMeans, K: 1}, TimeRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)

	_, err = svc.GeographicClusters(ctx, GeographicParams{Algorithm: "spectral"}, TimeRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestGeographicClustersDBSCANGroupsDenseRegion(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.EventRecord
	for i := 0; i < 12; i++ {
		records = append(records, eventAt(base, i, 4.0, 35.0+0.01*float64(i), -118.0, 10))
	}
	// One far-away event stays noise.
	records = append(records, eventAt(base, 20, 5.0, -30.0, 150.0, 10))
	svc := newTestService(&mockStore{records: records})

	result, err := svc.GeographicClusters(context.Background(),
		GeographicParams{Algorithm: AlgorithmDBSCAN, Eps: 1.0}, TimeRange{})
	require.NoError(t, err)

	assert.Equal(t, 13, result.Summary.TotalPoints)
	assert.Equal(t, 1, result.Summary.NClusters)
	assert.Equal(t, 1, result.Summary.NNoise)
	require.Len(t, result.Clusters, 1)
	assert.Equal(t, 12, result.Clusters[0].Size)
	assert.Equal(t, domain.NoiseCluster, result.Points[12].Cluster)
}

func TestMagnitudeClustersDescribesEachCluster(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.EventRecord
	for i := 0; i < 8; i++ {
		records = append(records, eventAt(base, i, 2.0+0.1*float64(i), 35, -118, 5))
	}
	for i := 0; i < 8; i++ {
		records = append(records, eventAt(base, 10+i, 6.5+0.05*float64(i), 36, -119, 500))
	}
	svc := newTestService(&mockStore{records: records})

	result, err := svc.MagnitudeClusters(context.Background(), 2, TimeRange{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.NClusters)
	require.Len(t, result.Clusters, 2)
	descriptions := map[string]bool{}
	for _, c := range result.Clusters {
		descriptions[c.Description] = true
		assert.Equal(t, 8, c.Size)
	}
	assert.True(t, descriptions["Low magnitude, Shallow depth"])
	assert.True(t, descriptions["High magnitude, Deep depth"])
}

func TestMagnitudeClustersRejectsOutOfRangeK(t *testing.T) {
	svc := newTestService(&mockStore{})
	_, err := svc.MagnitudeClusters(context.Background(), 1, TimeRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
	_, err = svc.MagnitudeClusters(context.Background(), 11, TimeRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestRiskZonesScoresAndSortsZones(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.EventRecord
	// Dense high-magnitude zone.
	for i := 0; i < 120; i++ {
		records = append(records, eventAt(base, i%30, 6.0, 35.0+0.01*float64(i%10), -118.0, 10))
	}
	// Smaller, milder zone far away.
	for i := 0; i < 15; i++ {
		records = append(records, eventAt(base, i, 3.0, 60.0+0.01*float64(i), 20.0, 10))
	}
	svc := newTestService(&mockStore{records: records})

	result, err := svc.RiskZones(context.Background(), TimeRange{})
	require.NoError(t, err)

	require.Len(t, result.Zones, 2)
	assert.GreaterOrEqual(t, result.Zones[0].RiskScore, result.Zones[1].RiskScore)
	assert.Equal(t, domain.RiskHigh, result.Zones[0].RiskLevel)
	assert.Equal(t, 2, result.Summary.TotalZones)
	assert.Equal(t, 135, result.Summary.TotalEvents)
	assert.Equal(t, result.Summary.HighRisk+result.Summary.MediumRisk+result.Summary.LowRisk, 2)
}

func TestForecastValidatesDaysAndModel(t *testing.T) {
	svc := newTestService(&mockStore{})
	ctx := context.Background()

	_, err := svc.Forecast(ctx, 0, ModelAuto)
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
	_, err = svc.Forecast(ctx, 31, ModelAuto)
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestForecastProducesContiguousFutureDates(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	var records []domain.EventRecord
	for i := 0; i < 40; i++ {
		day := now.AddDate(0, 0, -40+i)
		for e := 0; e < 2+i%3; e++ {
			records = append(records, domain.EventRecord{
				ID: day.Format("20060102") + "-" + string(rune('a'+e)), Time: day,
				Latitude: 35, Longitude: -118, Depth: 10, Magnitude: mag(4.0 + 0.1*float64(e)),
			})
		}
	}
	svc := newTestService(&mockStore{records: records})

	result, err := svc.Forecast(context.Background(), 3, ModelAuto)
	require.NoError(t, err)

	require.Len(t, result.Forecast, 3)
	assert.NotEmpty(t, result.ModelUsed)
	assert.NotEmpty(t, result.Attempts)
	assert.Equal(t, 3, result.Summary.ForecastDays)

	lastHistory := now.Truncate(24 * time.Hour)
	for i, p := range result.Forecast {
		assert.Equal(t, lastHistory.AddDate(0, 0, i+1), p.Date)
		assert.GreaterOrEqual(t, p.Predicted, 0.0)
		assert.LessOrEqual(t, p.Lower, p.Predicted)
		assert.LessOrEqual(t, p.Predicted, p.Upper)
	}
}

func TestForecastWithEmptyHistoryFallsBackToMean(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	svc := newTestService(&mockStore{})

	result, err := svc.Forecast(context.Background(), 5, ModelAuto)
	require.NoError(t, err)
	assert.Equal(t, "historical_mean", result.ModelUsed)
	for _, p := range result.Forecast {
		assert.Zero(t, p.Predicted)
	}
}

func TestRiskForecastClassifiesEveryDay(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	var records []domain.EventRecord
	for i := 0; i < 60; i++ {
		day := now.AddDate(0, 0, -60+i)
		for e := 0; e < 1+i%5; e++ {
			records = append(records, domain.EventRecord{
				ID: day.Format("20060102") + "-" + string(rune('a'+e)), Time: day,
				Latitude: 35, Longitude: -118, Depth: 10, Magnitude: mag(4.5),
			})
		}
	}
	svc := newTestService(&mockStore{records: records})

	result, err := svc.RiskForecast(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, result.Forecast, 7)
	total := result.Summary.HighRiskDays + result.Summary.MediumRiskDays + result.Summary.LowRiskDays
	assert.Equal(t, 7, total)
	for _, d := range result.Forecast {
		assert.Contains(t, []string{domain.RiskLow, domain.RiskMedium, domain.RiskHigh}, d.RiskLevel)
		assert.Contains(t, []int{1, 2, 3}, d.RiskScore)
	}
}

func TestMagnitudeForecastRoundsToTwoDecimals(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	var records []domain.EventRecord
	for i := 0; i < 30; i++ {
		day := now.AddDate(0, 0, -30+i)
		records = append(records, domain.EventRecord{
			ID: day.Format("20060102"), Time: day,
			Latitude: 35, Longitude: -118, Depth: 10, Magnitude: mag(4.0 + 0.137*float64(i%7)),
		})
	}
	svc := newTestService(&mockStore{records: records})

	result, err := svc.MagnitudeForecast(context.Background(), 4)
	require.NoError(t, err)

	require.Len(t, result.Forecast, 4)
	for _, p := range result.Forecast {
		assert.InDelta(t, p.Predicted, float64(int(p.Predicted*100+0.5))/100, 1e-9)
	}
}

func TestCheckReadinessDelegatesToStore(t *testing.T) {
	svc := newTestService(&mockStore{pingErr: domain.ErrUpstreamUnavailable})
	assert.ErrorIs(t, svc.CheckReadiness(context.Background()), domain.ErrUpstreamUnavailable)
}

func TestParseTimeRangeValidation(t *testing.T) {
	tr, err := ParseTimeRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), tr.Start)
	assert.Equal(t, 31, tr.End.Day())

	_, err = ParseTimeRange("01/01/2024", "")
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)

	_, err = ParseTimeRange("2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}
