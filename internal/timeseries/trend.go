package timeseries

import (
	"fmt"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// OLSTrend fits values against their index by ordinary least squares.
// Needs at least two points.
func OLSTrend(values []float64) (domain.LinearTrend, error) {
	n := len(values)
	if n < 2 {
		return domain.LinearTrend{}, fmt.Errorf("linear trend: need at least 2 points, have %d: %w",
			n, domain.ErrInsufficientData)
	}

	slope, intercept := fitLine(values)

	// R² against the mean model.
	mu := mean(values)
	var ssTot, ssRes float64
	line := make([]float64, n)
	for i, y := range values {
		fit := slope*float64(i) + intercept
		line[i] = fit
		ssTot += (y - mu) * (y - mu)
		ssRes += (y - fit) * (y - fit)
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	return domain.LinearTrend{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
		TrendLine: line,
	}, nil
}

// fitLine returns the least-squares slope and intercept of values over
// their indices 0..n-1.
func fitLine(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
