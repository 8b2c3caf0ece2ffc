package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/quakewatch/quake-analytics/internal/cache"
	"github.com/quakewatch/quake-analytics/internal/domain"
	"github.com/quakewatch/quake-analytics/internal/store"
	"github.com/quakewatch/quake-analytics/internal/timeseries"
)

// seasonalMinimumPeriods is the history the seasonal endpoint requires.
// The decomposer itself works from two periods, but below a year of monthly
// buckets the output is noise, so the operation reports insufficient data.
const seasonalMinimumPeriods = 12

// DateRange reports the observed extent of a record snapshot.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TimeseriesSummary aggregates the unresampled snapshot.
type TimeseriesSummary struct {
	TotalEarthquakes    int       `json:"total_earthquakes"`
	DateRange           DateRange `json:"date_range"`
	OverallAvgMagnitude float64   `json:"overall_avg_magnitude"`
	OverallMaxMagnitude float64   `json:"overall_max_magnitude"`
}

// TimeseriesResult is the /analysis/timeseries payload.
type TimeseriesResult struct {
	Period  string               `json:"period"`
	Data    []domain.SeriesPoint `json:"data"`
	Trend   *domain.LinearTrend  `json:"trend"`
	Summary *TimeseriesSummary   `json:"summary"`
}

// Timeseries resamples the filtered snapshot at the requested granularity,
// repairs gaps, and fits the linear trend over the repaired counts. An empty
// snapshot yields an empty series.
func (s *Service) Timeseries(ctx context.Context, g domain.Granularity, tr TimeRange) (TimeseriesResult, error) {
	key := cache.Key("timeseries", string(g), tr.key())
	return cached(ctx, s, key, func() (TimeseriesResult, error) {
		records, err := s.fetch(ctx, store.Filter{Start: tr.Start, End: tr.End, RequireMagnitude: true})
		if err != nil {
			return TimeseriesResult{}, err
		}

		result := TimeseriesResult{Period: string(g), Data: []domain.SeriesPoint{}}
		if len(records) == 0 {
			return result, nil
		}

		result.Data = timeseries.Build(records, g, tr.Start, tr.End)

		counts := make([]float64, len(result.Data))
		for i, p := range result.Data {
			counts[i] = float64(p.Count)
		}
		if trend, err := timeseries.OLSTrend(counts); err == nil {
			result.Trend = &trend
		}

		result.Summary = summarize(records)
		return result, nil
	})
}

func summarize(records []domain.EventRecord) *TimeseriesSummary {
	sum := &TimeseriesSummary{
		TotalEarthquakes: len(records),
		DateRange:        DateRange{Start: records[0].Time, End: records[len(records)-1].Time},
	}
	var magSum float64
	magCount := 0
	for _, r := range records {
		if !r.HasMagnitude() {
			continue
		}
		magSum += *r.Magnitude
		magCount++
		if *r.Magnitude > sum.OverallMaxMagnitude {
			sum.OverallMaxMagnitude = *r.Magnitude
		}
	}
	if magCount > 0 {
		sum.OverallAvgMagnitude = magSum / float64(magCount)
	}
	return sum
}

// Correlation computes the pairwise Pearson matrix over the fixed variable
// set of the filtered snapshot.
func (s *Service) Correlation(ctx context.Context, tr TimeRange) (timeseries.CorrelationResult, error) {
	key := cache.Key("correlation", tr.key())
	return cached(ctx, s, key, func() (timeseries.CorrelationResult, error) {
		records, err := s.fetch(ctx, store.Filter{Start: tr.Start, End: tr.End})
		if err != nil {
			return timeseries.CorrelationResult{}, err
		}
		return timeseries.Correlate(records), nil
	})
}

// SeasonalSummary aggregates a decomposition for display.
type SeasonalSummary struct {
	SeasonalStrength float64 `json:"seasonal_strength"`
	TrendDirection   string  `json:"trend_direction"`
	TotalMonths      int     `json:"total_months"`
	AvgPerMonth      float64 `json:"avg_earthquakes_per_month"`
}

// SeasonalResult is the /analysis/seasonal payload.
type SeasonalResult struct {
	Data    []domain.DecompositionPoint `json:"data"`
	Period  int                         `json:"period"`
	Model   string                      `json:"model"`
	Summary SeasonalSummary             `json:"summary"`
}

// Seasonal decomposes the monthly count series into trend, seasonal, and
// residual components. Fewer than 12 monthly periods is ErrInsufficientData,
// surfaced to clients as a "not enough history" condition rather than a
// server error.
func (s *Service) Seasonal(ctx context.Context, tr TimeRange) (SeasonalResult, error) {
	key := cache.Key("seasonal", tr.key())
	return cached(ctx, s, key, func() (SeasonalResult, error) {
		records, err := s.fetch(ctx, store.Filter{Start: tr.Start, End: tr.End, RequireMagnitude: true})
		if err != nil {
			return SeasonalResult{}, err
		}

		series := timeseries.Build(records, domain.Monthly, tr.Start, tr.End)
		if len(series) < seasonalMinimumPeriods {
			return SeasonalResult{}, fmt.Errorf("seasonal analysis needs %d monthly periods, have %d: %w",
				seasonalMinimumPeriods, len(series), domain.ErrInsufficientData)
		}

		dates := make([]time.Time, len(series))
		counts := make([]float64, len(series))
		var total float64
		for i, p := range series {
			dates[i] = p.Date
			counts[i] = float64(p.Count)
			total += counts[i]
		}

		decomp, err := timeseries.Decompose(dates, counts)
		if err != nil {
			return SeasonalResult{}, err
		}

		return SeasonalResult{
			Data:   decomp.Points,
			Period: decomp.Period,
			Model:  decomp.Model,
			Summary: SeasonalSummary{
				SeasonalStrength: decomp.SeasonalStrength,
				TrendDirection:   decomp.TrendDirection,
				TotalMonths:      len(series),
				AvgPerMonth:      total / float64(len(series)),
			},
		}, nil
	})
}

// DistributionResult is the /analysis/distribution payload.
type DistributionResult struct {
	Histogram  []timeseries.HistogramBin `json:"histogram"`
	Statistics timeseries.Descriptive    `json:"statistics"`
}

// Distribution bins the snapshot's magnitudes into an equal-width histogram.
func (s *Service) Distribution(ctx context.Context, bins int, tr TimeRange) (DistributionResult, error) {
	if bins < timeseries.MinBins || bins > timeseries.MaxBins {
		return DistributionResult{}, fmt.Errorf("bins must be in [%d,%d], got %d: %w",
			timeseries.MinBins, timeseries.MaxBins, bins, domain.ErrInvalidParameters)
	}

	key := cache.Key("distribution", strconv.Itoa(bins), tr.key())
	return cached(ctx, s, key, func() (DistributionResult, error) {
		records, err := s.fetch(ctx, store.Filter{Start: tr.Start, End: tr.End, RequireMagnitude: true})
		if err != nil {
			return DistributionResult{}, err
		}

		hist, desc, err := timeseries.Distribution(records, bins)
		if err != nil {
			return DistributionResult{}, err
		}
		return DistributionResult{Histogram: hist, Statistics: desc}, nil
	})
}
