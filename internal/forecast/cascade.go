// Package forecast produces N-day-ahead forecasts through an ordered model
// cascade with automatic fallback. Each model attempt yields an explicit
// success or failure; the first success wins and the terminal
// historical-mean model cannot fail, so the cascade always returns a
// forecast.
package forecast

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// Model is one forecasting strategy. Predict returns exactly horizon
// predictions or an error explaining why the fit failed; it never partially
// succeeds.
type Model interface {
	Name() string
	Predict(series []float64, horizon int) ([]Prediction, error)
}

// Prediction is a single-step model output before dates and clamping are
// applied.
type Prediction struct {
	Value float64
	Lower float64
	Upper float64
}

// Attempt records one model's outcome for observability.
type Attempt struct {
	Model string `json:"model"`
	Error string `json:"error,omitempty"`
}

// Outcome is a completed cascade run.
type Outcome struct {
	Points    []domain.ForecastPoint
	ModelUsed string
	Attempts  []Attempt
}

// Cascade is the fixed model order. The final model must be infallible;
// NewCascade ends with the historical-mean model which satisfies that by
// construction.
type Cascade struct {
	models []Model
	logger *slog.Logger
}

// NewCascade assembles the standard order: additive trend+seasonality,
// ARIMA, linear regression, historical mean.
func NewCascade(logger *slog.Logger) *Cascade {
	return &Cascade{
		models: []Model{
			&HoltWinters{SeasonLength: weeklySeason},
			&ARIMA{},
			&Linear{},
			&Mean{},
		},
		logger: logger,
	}
}

// ModelNames lists the cascade order.
func (c *Cascade) ModelNames() []string {
	names := make([]string, len(c.models))
	for i, m := range c.models {
		names[i] = m.Name()
	}
	return names
}

// Run attempts the models in order starting at entryModel (empty means the
// first), stopping at the first success. horizon dates are contiguous days
// starting the day after lastDate. nonNegative floors values at zero for
// series that cannot go below it, such as event counts.
func (c *Cascade) Run(series []float64, lastDate time.Time, horizon int, nonNegative bool, entryModel string) (Outcome, error) {
	if horizon < 1 {
		return Outcome{}, fmt.Errorf("forecast: horizon must be positive, got %d: %w",
			horizon, domain.ErrInvalidParameters)
	}

	start := 0
	if entryModel != "" {
		found := false
		for i, m := range c.models {
			if m.Name() == entryModel {
				start, found = i, true
				break
			}
		}
		if !found {
			return Outcome{}, fmt.Errorf("forecast: unknown model %q: %w", entryModel, domain.ErrInvalidParameters)
		}
	}

	var attempts []Attempt
	for _, m := range c.models[start:] {
		preds, err := m.Predict(series, horizon)
		if err == nil {
			err = validate(preds, horizon)
		}
		if err != nil {
			attempts = append(attempts, Attempt{Model: m.Name(), Error: err.Error()})
			c.logger.Warn("forecast model failed, falling back",
				"model", m.Name(), "error", err, "observations", len(series))
			continue
		}

		attempts = append(attempts, Attempt{Model: m.Name()})
		return Outcome{
			Points:    materialize(preds, lastDate, nonNegative),
			ModelUsed: m.Name(),
			Attempts:  attempts,
		}, nil
	}

	// Unreachable with the standard cascade: the mean model never fails.
	return Outcome{}, fmt.Errorf("forecast: all models failed: %w", domain.ErrModelFailure)
}

// validate rejects forecasts of the wrong length or containing undefined
// values, which counts as a model failure for cascade purposes.
func validate(preds []Prediction, horizon int) error {
	if len(preds) != horizon {
		return fmt.Errorf("returned %d of %d requested values: %w", len(preds), horizon, domain.ErrModelFailure)
	}
	for i, p := range preds {
		for _, v := range [3]float64{p.Value, p.Lower, p.Upper} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("undefined value at step %d: %w", i+1, domain.ErrModelFailure)
			}
		}
	}
	return nil
}

// materialize assigns contiguous dates and enforces the bound invariants.
func materialize(preds []Prediction, lastDate time.Time, nonNegative bool) []domain.ForecastPoint {
	points := make([]domain.ForecastPoint, len(preds))
	for i, p := range preds {
		fp := domain.ForecastPoint{
			Date:      lastDate.AddDate(0, 0, i+1),
			Predicted: p.Value,
			Lower:     p.Lower,
			Upper:     p.Upper,
		}
		if nonNegative {
			fp.FloorAtZero()
		}
		fp.Clamp()
		points[i] = fp
	}
	return points
}
