package forecast

import (
	"fmt"
	"math"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

const (
	// weeklySeason is the seasonal cycle for daily event series.
	weeklySeason = 7

	// Fixed smoothing parameters. Standard mid-range choices; tuning them
	// per request is not worth the fit instability on short series.
	hwAlpha = 0.3 // level
	hwBeta  = 0.1 // trend
	hwGamma = 0.2 // seasonality
)

// HoltWinters is the additive trend+seasonality model (the cascade's
// primary). Requires two full seasonal cycles of history; anything less is a
// model failure handed to the next model in the cascade.
type HoltWinters struct {
	SeasonLength int
}

func (h *HoltWinters) Name() string { return "holt_winters" }

func (h *HoltWinters) Predict(series []float64, horizon int) ([]Prediction, error) {
	m := h.SeasonLength
	if m < 2 {
		m = weeklySeason
	}
	if len(series) < 2*m {
		return nil, fmt.Errorf("holt-winters: need %d observations for season length %d, have %d: %w",
			2*m, m, len(series), domain.ErrModelFailure)
	}

	level, trend, seasonal := h.initialState(series, m)

	// One-step-ahead errors accumulate into the interval width.
	var sse float64
	steps := 0
	for i := m; i < len(series); i++ {
		predicted := level + trend + seasonal[i%m]
		err := series[i] - predicted
		sse += err * err
		steps++

		prevLevel := level
		level = hwAlpha*(series[i]-seasonal[i%m]) + (1-hwAlpha)*(level+trend)
		trend = hwBeta*(level-prevLevel) + (1-hwBeta)*trend
		seasonal[i%m] = hwGamma*(series[i]-level) + (1-hwGamma)*seasonal[i%m]
	}
	if steps == 0 {
		return nil, fmt.Errorf("holt-winters: no fit steps: %w", domain.ErrModelFailure)
	}
	sigma := math.Sqrt(sse / float64(steps))

	preds := make([]Prediction, horizon)
	n := len(series)
	for i := 0; i < horizon; i++ {
		step := i + 1
		value := level + float64(step)*trend + seasonal[(n+i)%m]
		// 95% interval, widening with the forecast step.
		width := 1.96 * sigma * math.Sqrt(float64(step))
		preds[i] = Prediction{Value: value, Lower: value - width, Upper: value + width}
	}
	return preds, nil
}

// initialState seeds level and trend from the first two seasonal cycles and
// the seasonal indices from first-cycle deviations.
func (h *HoltWinters) initialState(series []float64, m int) (level, trend float64, seasonal []float64) {
	var firstCycle, secondCycle float64
	for i := 0; i < m; i++ {
		firstCycle += series[i]
		secondCycle += series[m+i]
	}
	firstCycle /= float64(m)
	secondCycle /= float64(m)

	level = firstCycle
	trend = (secondCycle - firstCycle) / float64(m)

	seasonal = make([]float64, m)
	for i := 0; i < m; i++ {
		seasonal[i] = series[i] - firstCycle
	}
	return level, trend, seasonal
}
