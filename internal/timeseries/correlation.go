package timeseries

import (
	"math"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// CorrelationVariables is the fixed variable set, in reporting order.
var CorrelationVariables = []string{"magnitude", "depth", "latitude", "longitude", "significance"}

// CorrelationCell is one flattened matrix entry for heatmap rendering.
type CorrelationCell struct {
	X     string  `json:"x"`
	Y     string  `json:"y"`
	Value float64 `json:"value"`
}

// CorrelationPair names the off-diagonal pair with the largest |r|.
type CorrelationPair struct {
	Variables []string `json:"variables"`
	Value     float64  `json:"value"`
}

// CorrelationResult is the full pairwise Pearson matrix over the fixed
// variable set, plus its flattened form.
type CorrelationResult struct {
	Variables []string                      `json:"variables"`
	Matrix    map[string]map[string]float64 `json:"correlation_matrix"`
	Cells     []CorrelationCell             `json:"correlation_data"`
	Strongest CorrelationPair               `json:"highest_correlation"`
}

// Correlate computes the pairwise Pearson correlation matrix. Each cell uses
// the records where both variables are present (pairwise-complete, not a
// single global drop); fewer than two complete observations for a pair, or a
// degenerate zero-variance column, yields the neutral 0.0 rather than NaN.
func Correlate(records []domain.EventRecord) CorrelationResult {
	cols := extractColumns(records)
	k := len(CorrelationVariables)

	matrix := make(map[string]map[string]float64, k)
	cells := make([]CorrelationCell, 0, k*k)
	strongest := CorrelationPair{Variables: []string{}}

	for i, x := range CorrelationVariables {
		matrix[x] = make(map[string]float64, k)
		for j, y := range CorrelationVariables {
			var r float64
			if i == j {
				if completeCount(cols[x]) >= 2 {
					r = 1.0
				}
			} else {
				r = pairwisePearson(cols[x], cols[y])
			}
			matrix[x][y] = r
			cells = append(cells, CorrelationCell{X: x, Y: y, Value: r})

			if i < j && math.Abs(r) > math.Abs(strongest.Value) {
				strongest = CorrelationPair{Variables: []string{x, y}, Value: r}
			}
		}
	}

	return CorrelationResult{
		Variables: CorrelationVariables,
		Matrix:    matrix,
		Cells:     cells,
		Strongest: strongest,
	}
}

// extractColumns pulls the fixed variables out of the records. Only
// magnitude can be absent; the rest are always present.
func extractColumns(records []domain.EventRecord) map[string][]*float64 {
	n := len(records)
	cols := map[string][]*float64{
		"magnitude":    make([]*float64, n),
		"depth":        make([]*float64, n),
		"latitude":     make([]*float64, n),
		"longitude":    make([]*float64, n),
		"significance": make([]*float64, n),
	}
	for i, r := range records {
		if r.HasMagnitude() {
			cols["magnitude"][i] = r.Magnitude
		}
		cols["depth"][i] = ptr(r.Depth)
		cols["latitude"][i] = ptr(r.Latitude)
		cols["longitude"][i] = ptr(r.Longitude)
		cols["significance"][i] = ptr(float64(r.Significance))
	}
	return cols
}

func completeCount(xs []*float64) int {
	n := 0
	for _, x := range xs {
		if x != nil {
			n++
		}
	}
	return n
}

// pairwisePearson computes Pearson's r over the observations where both
// columns are present. Returns 0.0 when fewer than two such observations
// exist or either column has zero variance.
func pairwisePearson(xs, ys []*float64) float64 {
	var xv, yv []float64
	for i := range xs {
		if xs[i] != nil && ys[i] != nil {
			xv = append(xv, *xs[i])
			yv = append(yv, *ys[i])
		}
	}
	if len(xv) < 2 {
		return 0
	}

	mx, my := mean(xv), mean(yv)
	var sxy, sxx, syy float64
	for i := range xv {
		dx, dy := xv[i]-mx, yv[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}
