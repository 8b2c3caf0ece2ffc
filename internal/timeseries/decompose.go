package timeseries

import (
	"fmt"
	"time"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

const (
	// seasonalPeriod is the dominant annual cycle for monthly buckets.
	seasonalPeriod = 12

	// classicalMinimum is the series length below which classical additive
	// decomposition is not attempted (two full seasonal cycles).
	classicalMinimum = 2 * seasonalPeriod
)

// Decompose splits a series into trend, seasonal, and residual components.
// Series of at least two full annual cycles get the classical additive
// decomposition with period 12; shorter series fall back to a window-3
// moving-average trend with seasonal = observed - trend and no residual.
// Fewer than two periods is ErrInsufficientData.
func Decompose(dates []time.Time, observed []float64) (domain.Decomposition, error) {
	if len(dates) != len(observed) {
		return domain.Decomposition{}, fmt.Errorf("decompose: %d dates for %d observations: %w",
			len(dates), len(observed), domain.ErrInvalidParameters)
	}
	if len(observed) < 2 {
		return domain.Decomposition{}, fmt.Errorf("decompose: need at least 2 periods, have %d: %w",
			len(observed), domain.ErrInsufficientData)
	}

	if len(observed) >= classicalMinimum {
		return classical(dates, observed), nil
	}
	return movingAverage(dates, observed), nil
}

// classical is the additive decomposition: centered moving-average trend over
// one full period, phase-averaged seasonal deviations (centered to sum to
// zero), residual as the remainder. observed = trend + seasonal + residual
// wherever all three are defined.
func classical(dates []time.Time, observed []float64) domain.Decomposition {
	n := len(observed)
	trend := centeredMA(observed, seasonalPeriod)

	// Average the detrended value per phase of the cycle.
	phaseSum := make([]float64, seasonalPeriod)
	phaseCnt := make([]int, seasonalPeriod)
	for i := 0; i < n; i++ {
		if trend[i] == nil {
			continue
		}
		p := i % seasonalPeriod
		phaseSum[p] += observed[i] - *trend[i]
		phaseCnt[p]++
	}
	phase := make([]float64, seasonalPeriod)
	var phaseMean float64
	for p := range phase {
		if phaseCnt[p] > 0 {
			phase[p] = phaseSum[p] / float64(phaseCnt[p])
		}
		phaseMean += phase[p]
	}
	phaseMean /= seasonalPeriod
	for p := range phase {
		phase[p] -= phaseMean
	}

	points := make([]domain.DecompositionPoint, n)
	var seasonalVals []float64
	for i := 0; i < n; i++ {
		s := phase[i%seasonalPeriod]
		pt := domain.DecompositionPoint{
			Date:     dates[i],
			Observed: observed[i],
			Seasonal: ptr(s),
		}
		seasonalVals = append(seasonalVals, s)
		if trend[i] != nil {
			pt.Trend = trend[i]
			pt.Residual = ptr(observed[i] - *trend[i] - s)
		}
		points[i] = pt
	}

	return domain.Decomposition{
		Points:           points,
		Period:           seasonalPeriod,
		Model:            "additive",
		TrendDirection:   trendDirection(trend),
		SeasonalStrength: populationStd(seasonalVals),
	}
}

// movingAverage is the short-series regime: window-3 centered trend,
// seasonal as the deviation from it, residual undefined.
func movingAverage(dates []time.Time, observed []float64) domain.Decomposition {
	n := len(observed)
	var trend []*float64
	if n >= 3 {
		trend = centeredMA(observed, 3)
	} else {
		// Too short for any smoothing; the trend is the series itself.
		trend = make([]*float64, n)
		for i := range observed {
			trend[i] = ptr(observed[i])
		}
	}

	points := make([]domain.DecompositionPoint, n)
	var seasonalVals []float64
	for i := 0; i < n; i++ {
		pt := domain.DecompositionPoint{Date: dates[i], Observed: observed[i]}
		if trend[i] != nil {
			pt.Trend = trend[i]
			s := observed[i] - *trend[i]
			pt.Seasonal = ptr(s)
			seasonalVals = append(seasonalVals, s)
		}
		points[i] = pt
	}

	return domain.Decomposition{
		Points:           points,
		Period:           seasonalPeriod,
		Model:            "moving_average",
		TrendDirection:   trendDirection(trend),
		SeasonalStrength: populationStd(seasonalVals),
	}
}

// centeredMA computes a centered moving average. For an even window the two
// edge terms get half weight (the standard 2xN moving average), so the
// result stays centered on the observation. Entries without a full window
// are nil.
func centeredMA(xs []float64, window int) []*float64 {
	n := len(xs)
	out := make([]*float64, n)

	if window%2 == 1 {
		half := window / 2
		for i := half; i < n-half; i++ {
			var sum float64
			for j := i - half; j <= i+half; j++ {
				sum += xs[j]
			}
			out[i] = ptr(sum / float64(window))
		}
		return out
	}

	half := window / 2
	for i := half; i < n-half; i++ {
		sum := 0.5*xs[i-half] + 0.5*xs[i+half]
		for j := i - half + 1; j < i+half; j++ {
			sum += xs[j]
		}
		out[i] = ptr(sum / float64(window))
	}
	return out
}

// trendDirection labels the trend by comparing its terminal defined value
// with its initial one.
func trendDirection(trend []*float64) string {
	var first, last *float64
	for _, t := range trend {
		if t == nil {
			continue
		}
		if first == nil {
			first = t
		}
		last = t
	}
	if first == nil || last == nil {
		return "decreasing"
	}
	if *last > *first {
		return "increasing"
	}
	return "decreasing"
}

func ptr(v float64) *float64 { return &v }
