package analytics

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/quakewatch/quake-analytics/internal/cache"
	"github.com/quakewatch/quake-analytics/internal/domain"
	"github.com/quakewatch/quake-analytics/internal/forecast"
	"github.com/quakewatch/quake-analytics/internal/store"
	"github.com/quakewatch/quake-analytics/internal/timeseries"
)

// historyDays is how much daily history feeds the forecast models.
const historyDays = 90

// Risk forecast levels on the 1..3 scale. This scale is independent from the
// cluster risk score, which is unbounded.
const (
	riskScoreLow    = 1
	riskScoreMedium = 2
	riskScoreHigh   = 3
)

// ForecastModel selects where the cascade starts.
type ForecastModel string

const (
	ModelAuto    ForecastModel = "auto"
	ModelProphet ForecastModel = "prophet"
	ModelARIMA   ForecastModel = "arima"
)

// ParseForecastModel maps the query-string model to a ForecastModel.
func ParseForecastModel(s string) (ForecastModel, bool) {
	switch ForecastModel(s) {
	case ModelAuto, ModelProphet, ModelARIMA:
		return ForecastModel(s), true
	}
	return "", false
}

// entryModel translates the requested model into a cascade entry point.
// auto and prophet run the whole cascade from its seasonal head; arima
// skips straight to the ARIMA model (its own fallbacks still apply).
func entryModel(m ForecastModel) string {
	if m == ModelARIMA {
		return "arima"
	}
	return ""
}

// ForecastSummary aggregates a completed forecast.
type ForecastSummary struct {
	HistoricalDays int     `json:"historical_days"`
	HistoricalAvg  float64 `json:"historical_avg"`
	ForecastAvg    float64 `json:"forecast_avg"`
	ForecastDays   int     `json:"forecast_days"`
}

// ForecastResult is the /predictions/forecast payload.
type ForecastResult struct {
	Forecast  []domain.ForecastPoint `json:"forecast"`
	ModelUsed string                 `json:"model_used"`
	Attempts  []forecast.Attempt     `json:"attempts"`
	Summary   ForecastSummary        `json:"summary"`
}

// Forecast predicts daily event counts for the next days through the model
// cascade. History is the repaired daily count series over the trailing
// window; the forecast starts the day after the last observed bucket.
func (s *Service) Forecast(ctx context.Context, days int, model ForecastModel) (ForecastResult, error) {
	if err := validateDays(days); err != nil {
		return ForecastResult{}, err
	}

	key := cache.Key("forecast", strconv.Itoa(days), string(model), historyWindowKey())
	return cached(ctx, s, key, func() (ForecastResult, error) {
		counts, _, lastDate, err := s.history(ctx)
		if err != nil {
			return ForecastResult{}, err
		}

		outcome, err := s.cascade.Run(counts, lastDate, days, true, entryModel(model))
		if err != nil {
			return ForecastResult{}, err
		}
		s.metrics.ForecastModelUsed.WithLabelValues(outcome.ModelUsed).Inc()

		return ForecastResult{
			Forecast:  outcome.Points,
			ModelUsed: outcome.ModelUsed,
			Attempts:  outcome.Attempts,
			Summary: ForecastSummary{
				HistoricalDays: len(counts),
				HistoricalAvg:  meanFloat(counts),
				ForecastAvg:    meanPredicted(outcome.Points),
				ForecastDays:   days,
			},
		}, nil
	})
}

// RiskDay is one day of the risk forecast.
type RiskDay struct {
	Date           time.Time `json:"date"`
	PredictedCount float64   `json:"predicted_count"`
	RiskLevel      string    `json:"risk_level"`
	RiskScore      int       `json:"risk_score"`
}

// RiskForecastSummary counts forecast days by level.
type RiskForecastSummary struct {
	HighRiskDays      int     `json:"high_risk_days"`
	MediumRiskDays    int     `json:"medium_risk_days"`
	LowRiskDays       int     `json:"low_risk_days"`
	AvgPredictedCount float64 `json:"avg_predicted_count"`
}

// RiskForecastResult is the /predictions/risk-forecast payload.
type RiskForecastResult struct {
	Forecast  []RiskDay           `json:"risk_forecast"`
	ModelUsed string              `json:"model_used"`
	Summary   RiskForecastSummary `json:"summary"`
}

// RiskForecast classifies each forecast day against the history's count
// quantiles: above the 75th percentile High, above the median Medium,
// otherwise Low.
func (s *Service) RiskForecast(ctx context.Context, days int) (RiskForecastResult, error) {
	if err := validateDays(days); err != nil {
		return RiskForecastResult{}, err
	}

	key := cache.Key("risk_forecast", strconv.Itoa(days), historyWindowKey())
	return cached(ctx, s, key, func() (RiskForecastResult, error) {
		counts, _, lastDate, err := s.history(ctx)
		if err != nil {
			return RiskForecastResult{}, err
		}

		outcome, err := s.cascade.Run(counts, lastDate, days, true, "")
		if err != nil {
			return RiskForecastResult{}, err
		}
		s.metrics.ForecastModelUsed.WithLabelValues(outcome.ModelUsed).Inc()

		q75 := timeseries.Quantile(counts, 0.75)
		q50 := timeseries.Quantile(counts, 0.50)

		result := RiskForecastResult{
			Forecast:  make([]RiskDay, len(outcome.Points)),
			ModelUsed: outcome.ModelUsed,
		}
		var sum float64
		for i, p := range outcome.Points {
			level, score := classifyRisk(p.Predicted, q75, q50)
			result.Forecast[i] = RiskDay{
				Date:           p.Date,
				PredictedCount: p.Predicted,
				RiskLevel:      level,
				RiskScore:      score,
			}
			sum += p.Predicted
			switch level {
			case domain.RiskHigh:
				result.Summary.HighRiskDays++
			case domain.RiskMedium:
				result.Summary.MediumRiskDays++
			default:
				result.Summary.LowRiskDays++
			}
		}
		if len(outcome.Points) > 0 {
			result.Summary.AvgPredictedCount = sum / float64(len(outcome.Points))
		}
		return result, nil
	})
}

func classifyRisk(predicted, q75, q50 float64) (string, int) {
	switch {
	case predicted > q75:
		return domain.RiskHigh, riskScoreHigh
	case predicted > q50:
		return domain.RiskMedium, riskScoreMedium
	default:
		return domain.RiskLow, riskScoreLow
	}
}

// MagnitudeForecastResult is the /predictions/magnitude-forecast payload.
type MagnitudeForecastResult struct {
	Forecast  []domain.ForecastPoint `json:"magnitude_forecast"`
	ModelUsed string                 `json:"model_used"`
	Attempts  []forecast.Attempt     `json:"attempts"`
	Summary   ForecastSummary        `json:"summary"`
}

// MagnitudeForecast runs the cascade on the daily average-magnitude series.
// Values are reported to two decimals; magnitudes are not floored at zero.
func (s *Service) MagnitudeForecast(ctx context.Context, days int) (MagnitudeForecastResult, error) {
	if err := validateDays(days); err != nil {
		return MagnitudeForecastResult{}, err
	}

	key := cache.Key("magnitude_forecast", strconv.Itoa(days), historyWindowKey())
	return cached(ctx, s, key, func() (MagnitudeForecastResult, error) {
		_, magnitudes, lastDate, err := s.history(ctx)
		if err != nil {
			return MagnitudeForecastResult{}, err
		}

		outcome, err := s.cascade.Run(magnitudes, lastDate, days, false, "")
		if err != nil {
			return MagnitudeForecastResult{}, err
		}
		s.metrics.ForecastModelUsed.WithLabelValues(outcome.ModelUsed).Inc()

		for i := range outcome.Points {
			p := &outcome.Points[i]
			p.Predicted = round2(p.Predicted)
			p.Lower = round2(p.Lower)
			p.Upper = round2(p.Upper)
			p.Clamp()
		}

		return MagnitudeForecastResult{
			Forecast:  outcome.Points,
			ModelUsed: outcome.ModelUsed,
			Attempts:  outcome.Attempts,
			Summary: ForecastSummary{
				HistoricalDays: len(magnitudes),
				HistoricalAvg:  round2(meanFloat(magnitudes)),
				ForecastAvg:    round2(meanPredicted(outcome.Points)),
				ForecastDays:   days,
			},
		}, nil
	})
}

// history builds the repaired daily count and avg-magnitude series over the
// trailing window. The series may be empty; lastDate then falls back to
// today so forecast dates still start tomorrow.
func (s *Service) history(ctx context.Context) (counts, magnitudes []float64, lastDate time.Time, err error) {
	now := domain.Now()
	start := now.AddDate(0, 0, -historyDays)

	records, err := s.fetch(ctx, store.Filter{Start: start, End: now, RequireMagnitude: true})
	if err != nil {
		return nil, nil, time.Time{}, err
	}

	series := timeseries.Build(records, domain.Daily, start, now)
	lastDate = now.Truncate(24 * time.Hour)
	if len(series) > 0 {
		lastDate = series[len(series)-1].Date
	}

	counts = make([]float64, len(series))
	magnitudes = make([]float64, len(series))
	for i, p := range series {
		counts[i] = float64(p.Count)
		magnitudes[i] = p.AvgMagnitude
	}
	return counts, magnitudes, lastDate, nil
}

// historyWindowKey pins forecast cache entries to the current day, so a
// cached forecast never outlives the window it was computed from by more
// than the cache TTL.
func historyWindowKey() string {
	return domain.Now().Format("2006-01-02")
}

func meanFloat(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func meanPredicted(points []domain.ForecastPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Predicted
	}
	return sum / float64(len(points))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
