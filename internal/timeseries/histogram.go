package timeseries

import (
	"fmt"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// Bin bounds accepted for magnitude histograms.
const (
	MinBins = 5
	MaxBins = 100
)

// HistogramBin is one equal-width bin. The final bin includes its upper edge.
type HistogramBin struct {
	BinStart  float64 `json:"bin_start"`
	BinEnd    float64 `json:"bin_end"`
	BinCenter float64 `json:"bin_center"`
	Count     int     `json:"count"`
}

// Descriptive summarizes a sample.
type Descriptive struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// Distribution bins the measured magnitudes of the given records into an
// equal-width histogram and computes descriptive statistics. Records without
// a magnitude are skipped. bins outside [MinBins, MaxBins] is
// ErrInvalidParameters; no measured magnitudes is ErrInsufficientData.
func Distribution(records []domain.EventRecord, bins int) ([]HistogramBin, Descriptive, error) {
	if bins < MinBins || bins > MaxBins {
		return nil, Descriptive{}, fmt.Errorf("distribution: bins must be in [%d,%d], got %d: %w",
			MinBins, MaxBins, bins, domain.ErrInvalidParameters)
	}

	var mags []float64
	for _, r := range records {
		if r.HasMagnitude() {
			mags = append(mags, *r.Magnitude)
		}
	}
	if len(mags) == 0 {
		return nil, Descriptive{}, fmt.Errorf("distribution: no measured magnitudes: %w",
			domain.ErrInsufficientData)
	}

	lo, hi := minOf(mags), maxOf(mags)
	if lo == hi {
		// Degenerate single-value sample: widen the range so bins have width.
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		start := lo + float64(i)*width
		out[i] = HistogramBin{
			BinStart:  start,
			BinEnd:    start + width,
			BinCenter: start + width/2,
		}
	}
	for _, m := range mags {
		i := int((m - lo) / width)
		if i >= bins {
			i = bins - 1 // the max value lands in the last bin
		}
		out[i].Count++
	}

	std := 0.0
	if len(mags) >= 2 {
		std = sampleStd(mags)
	}
	desc := Descriptive{
		Mean:   mean(mags),
		Median: quantile(mags, 0.5),
		Std:    std,
		Min:    minOf(mags),
		Max:    maxOf(mags),
		Q25:    quantile(mags, 0.25),
		Q75:    quantile(mags, 0.75),
	}
	return out, desc, nil
}
