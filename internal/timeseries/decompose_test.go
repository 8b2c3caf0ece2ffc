package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

func months(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
	}
	return out
}

// synthetic builds linear trend + a pure period-12 seasonal signal.
func synthetic(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 50 + 0.5*float64(i) + 10*math.Sin(2*math.Pi*float64(i)/12)
	}
	return out
}

func TestDecomposeTooShortIsInsufficientData(t *testing.T) {
	_, err := Decompose(months(1), []float64{5})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestDecomposeMismatchedLengthsIsInvalid(t *testing.T) {
	_, err := Decompose(months(3), []float64{1, 2})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestDecomposeShortSeriesUsesMovingAverageRegime(t *testing.T) {
	n := 15 // below two full cycles
	d, err := Decompose(months(n), synthetic(n))
	require.NoError(t, err)

	assert.Equal(t, "moving_average", d.Model)
	assert.Equal(t, 12, d.Period)
	require.Len(t, d.Points, n)

	// Window-3 trend is undefined at the edges, residual always undefined.
	assert.Nil(t, d.Points[0].Trend)
	assert.Nil(t, d.Points[n-1].Trend)
	for _, p := range d.Points {
		assert.Nil(t, p.Residual)
	}

	// Where the trend exists, seasonal is exactly the deviation from it.
	mid := d.Points[5]
	require.NotNil(t, mid.Trend)
	require.NotNil(t, mid.Seasonal)
	assert.InDelta(t, mid.Observed-*mid.Trend, *mid.Seasonal, 1e-9)
}

func TestDecomposeClassicalAdditiveIdentity(t *testing.T) {
	n := 36
	d, err := Decompose(months(n), synthetic(n))
	require.NoError(t, err)

	assert.Equal(t, "additive", d.Model)
	assert.Equal(t, 12, d.Period)
	require.Len(t, d.Points, n)

	// observed = trend + seasonal + residual wherever all are defined.
	defined := 0
	for _, p := range d.Points {
		if p.Trend == nil {
			continue
		}
		require.NotNil(t, p.Seasonal)
		require.NotNil(t, p.Residual)
		assert.InDelta(t, p.Observed, *p.Trend+*p.Seasonal+*p.Residual, 1e-9)
		defined++
	}
	assert.Equal(t, n-12, defined) // half a cycle trimmed at each edge

	// Seasonal indices repeat with period 12 and sum to zero over a cycle.
	var cycle float64
	for i := 0; i < 12; i++ {
		cycle += *d.Points[i].Seasonal
		assert.InDelta(t, *d.Points[i].Seasonal, *d.Points[i+12].Seasonal, 1e-9)
	}
	assert.InDelta(t, 0, cycle, 1e-9)

	assert.Equal(t, "increasing", d.TrendDirection)
	assert.Greater(t, d.SeasonalStrength, 1.0)
}

func TestDecomposeDecreasingTrendDirection(t *testing.T) {
	n := 24
	obs := make([]float64, n)
	for i := range obs {
		obs[i] = 100 - 2*float64(i)
	}

	d, err := Decompose(months(n), obs)
	require.NoError(t, err)
	assert.Equal(t, "decreasing", d.TrendDirection)
}
