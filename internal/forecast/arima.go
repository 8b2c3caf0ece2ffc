package forecast

import (
	"fmt"
	"math"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// arimaOrderCutoff is the series length above which the richer (2,1,2)
// order is used. Lower-order parameters avoid overfitting and
// non-convergence on short series.
const arimaOrderCutoff = 30

// ARIMA is the cascade's secondary model: an autoregressive integrated
// moving-average fit on the once-differenced series, estimated by the
// Hannan-Rissanen two-stage regression. Singular normal equations or too few
// observations are model failures.
type ARIMA struct{}

func (a *ARIMA) Name() string { return "arima" }

// OrderFor selects (p,d,q) from the series length: (2,1,2) above 30
// observations, (1,1,1) otherwise.
func (a *ARIMA) OrderFor(n int) (p, d, q int) {
	if n > arimaOrderCutoff {
		return 2, 1, 2
	}
	return 1, 1, 1
}

func (a *ARIMA) Predict(series []float64, horizon int) ([]Prediction, error) {
	n := len(series)
	p, _, q := a.OrderFor(n)

	// Differencing once plus the regression lags sets the floor on history.
	minObs := 3*(p+q) + 4
	if n < minObs {
		return nil, fmt.Errorf("arima(%d,1,%d): need %d observations, have %d: %w",
			p, q, minObs, n, domain.ErrModelFailure)
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = series[i] - series[i-1]
	}

	arCoef, maCoef, sigma, resid, err := fitARMA(diff, p, q)
	if err != nil {
		return nil, err
	}

	// Recursive multi-step forecast on the differenced scale. Future shocks
	// are zero; recent residuals feed the MA terms until they age out.
	hist := append([]float64(nil), diff...)
	shocks := append([]float64(nil), resid...)
	preds := make([]Prediction, horizon)
	last := series[n-1]
	for step := 1; step <= horizon; step++ {
		var d float64
		for i, c := range arCoef {
			d += c * hist[len(hist)-1-i]
		}
		for i, c := range maCoef {
			d += c * shocks[len(shocks)-1-i]
		}
		hist = append(hist, d)
		shocks = append(shocks, 0)

		last += d // integrate back to the original scale
		width := 1.96 * sigma * math.Sqrt(float64(step))
		preds[step-1] = Prediction{Value: last, Lower: last - width, Upper: last + width}
	}
	return preds, nil
}

// fitARMA estimates ARMA(p,q) coefficients by Hannan-Rissanen: a long AR
// regression supplies residual estimates, then the series is regressed on
// its own lags and the lagged residuals.
func fitARMA(x []float64, p, q int) (arCoef, maCoef []float64, sigma float64, resid []float64, err error) {
	// Stage one: long AR to approximate the innovations.
	longOrder := p + q + 2
	if longOrder > len(x)/2 {
		longOrder = len(x) / 2
	}
	if longOrder < 1 {
		return nil, nil, 0, nil, fmt.Errorf("arima: series too short for innovation estimate: %w", domain.ErrModelFailure)
	}
	longAR, err := olsLags(x, longOrder)
	if err != nil {
		return nil, nil, 0, nil, err
	}
	innov := make([]float64, len(x))
	for i := longOrder; i < len(x); i++ {
		pred := 0.0
		for j, c := range longAR {
			pred += c * x[i-1-j]
		}
		innov[i] = x[i] - pred
	}

	// Stage two: regress on p lags of x and q lags of the innovations.
	offset := longOrder
	if p > offset {
		offset = p
	}
	offset += q
	rows := len(x) - offset
	if rows <= p+q {
		return nil, nil, 0, nil, fmt.Errorf("arima: insufficient observations after lagging: %w", domain.ErrModelFailure)
	}

	design := make([][]float64, rows)
	target := make([]float64, rows)
	for r := 0; r < rows; r++ {
		i := offset + r
		row := make([]float64, p+q)
		for j := 0; j < p; j++ {
			row[j] = x[i-1-j]
		}
		for j := 0; j < q; j++ {
			row[p+j] = innov[i-1-j]
		}
		design[r] = row
		target[r] = x[i]
	}

	coef, err := leastSquares(design, target)
	if err != nil {
		return nil, nil, 0, nil, err
	}
	arCoef, maCoef = coef[:p], coef[p:]

	resid = make([]float64, rows)
	var sse float64
	for r := 0; r < rows; r++ {
		pred := 0.0
		for j, c := range coef {
			pred += c * design[r][j]
		}
		resid[r] = target[r] - pred
		sse += resid[r] * resid[r]
	}
	sigma = math.Sqrt(sse / float64(rows))
	return arCoef, maCoef, sigma, resid, nil
}

// olsLags fits an AR(order) model by least squares and returns the lag
// coefficients.
func olsLags(x []float64, order int) ([]float64, error) {
	rows := len(x) - order
	design := make([][]float64, rows)
	target := make([]float64, rows)
	for r := 0; r < rows; r++ {
		i := order + r
		row := make([]float64, order)
		for j := 0; j < order; j++ {
			row[j] = x[i-1-j]
		}
		design[r] = row
		target[r] = x[i]
	}
	return leastSquares(design, target)
}

// leastSquares solves min ||Ab - y|| via the normal equations with Gaussian
// elimination. A singular system (collinear regressors, constant series) is
// a model failure.
func leastSquares(a [][]float64, y []float64) ([]float64, error) {
	cols := len(a[0])
	ata := make([][]float64, cols)
	aty := make([]float64, cols)
	for i := 0; i < cols; i++ {
		ata[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			var s float64
			for r := range a {
				s += a[r][i] * a[r][j]
			}
			ata[i][j] = s
		}
		var s float64
		for r := range a {
			s += a[r][i] * y[r]
		}
		aty[i] = s
	}
	return solve(ata, aty)
}

// solve performs Gaussian elimination with partial pivoting.
func solve(m [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("arima: singular covariance in fit: %w", domain.ErrModelFailure)
		}
		m[col], m[pivot] = m[pivot], m[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c < n; c++ {
				m[r][c] -= f * m[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	out := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := b[r]
		for c := r + 1; c < n; c++ {
			s -= m[r][c] * out[c]
		}
		out[r] = s / m[r][r]
	}
	return out, nil
}
