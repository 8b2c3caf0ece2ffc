package forecast

import (
	"fmt"
	"math"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// Linear is the cascade's tertiary model: ordinary least squares on the time
// index, with bounds at prediction ± 1.96 × the residual standard error.
type Linear struct{}

func (l *Linear) Name() string { return "linear_regression" }

func (l *Linear) Predict(series []float64, horizon int) ([]Prediction, error) {
	n := len(series)
	if n < 2 {
		return nil, fmt.Errorf("linear regression: need at least 2 observations, have %d: %w",
			n, domain.ErrModelFailure)
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return nil, fmt.Errorf("linear regression: degenerate index: %w", domain.ErrModelFailure)
	}
	slope := (nf*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / nf

	var sse float64
	for i, y := range series {
		r := y - (slope*float64(i) + intercept)
		sse += r * r
	}
	se := math.Sqrt(sse / nf)

	preds := make([]Prediction, horizon)
	for i := 0; i < horizon; i++ {
		x := float64(n + i)
		v := slope*x + intercept
		width := 1.96 * se
		preds[i] = Prediction{Value: v, Lower: v - width, Upper: v + width}
	}
	return preds, nil
}
