package forecast

import "math"

// Mean is the terminal, infallible model: it repeats the historical mean
// with a ± one standard deviation band, and degrades to 0 with zero-width
// bounds when no history exists at all.
type Mean struct{}

func (m *Mean) Name() string { return "historical_mean" }

func (m *Mean) Predict(series []float64, horizon int) ([]Prediction, error) {
	var mu, sd float64
	if len(series) > 0 {
		for _, v := range series {
			mu += v
		}
		mu /= float64(len(series))

		var ss float64
		for _, v := range series {
			ss += (v - mu) * (v - mu)
		}
		sd = math.Sqrt(ss / float64(len(series)))
	}

	preds := make([]Prediction, horizon)
	for i := range preds {
		preds[i] = Prediction{Value: mu, Lower: mu - sd, Upper: mu + sd}
	}
	return preds, nil
}
