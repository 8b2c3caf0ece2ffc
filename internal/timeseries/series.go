package timeseries

import (
	"math"
	"time"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// rollingWindow is the centered window used to repair leading/trailing gaps
// that linear interpolation cannot reach.
const rollingWindow = 7

// Build resamples an ordered record set into a regular series of calendar
// buckets at the given granularity, one point per bucket between the first
// and last event (or the explicit bounds when both are set), then repairs
// missing values. An empty record set yields an empty series, not an error.
func Build(records []domain.EventRecord, g domain.Granularity, start, end time.Time) []domain.SeriesPoint {
	if len(records) == 0 {
		return []domain.SeriesPoint{}
	}

	lo, hi := start, end
	if lo.IsZero() {
		lo = records[0].Time
	}
	if hi.IsZero() {
		hi = records[len(records)-1].Time
	}
	lo, hi = bucketStart(lo, g), bucketStart(hi, g)
	if hi.Before(lo) {
		lo, hi = hi, lo
	}

	buckets := makeBuckets(lo, hi, g)
	idx := make(map[time.Time]int, len(buckets))
	for i, b := range buckets {
		idx[b] = i
	}

	n := len(buckets)
	acc := make([]bucketAcc, n)
	for _, r := range records {
		i, ok := idx[bucketStart(r.Time, g)]
		if !ok {
			continue // outside the requested bounds
		}
		acc[i].add(r)
	}

	return repair(buckets, acc)
}

// bucketStart truncates t to the start of its calendar bucket in UTC.
// Weekly buckets start on Monday.
func bucketStart(t time.Time, g domain.Granularity) time.Time {
	t = t.UTC()
	switch g {
	case domain.Weekly:
		day := t.Truncate(24 * time.Hour)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(24 * time.Hour)
	}
}

// nextBucket advances one bucket at the given granularity.
func nextBucket(t time.Time, g domain.Granularity) time.Time {
	switch g {
	case domain.Weekly:
		return t.AddDate(0, 0, 7)
	case domain.Monthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func makeBuckets(lo, hi time.Time, g domain.Granularity) []time.Time {
	var buckets []time.Time
	for b := lo; !b.After(hi); b = nextBucket(b, g) {
		buckets = append(buckets, b)
	}
	return buckets
}

// bucketAcc accumulates per-bucket statistics before repair.
type bucketAcc struct {
	count int
	mags  []float64
	depth []float64
}

func (a *bucketAcc) add(r domain.EventRecord) {
	a.count++
	if r.HasMagnitude() {
		a.mags = append(a.mags, *r.Magnitude)
	}
	a.depth = append(a.depth, r.Depth)
}

// field is one repairable column of the series. A nil entry is missing.
type field struct {
	values  []float64
	missing []bool
}

func newField(n int) field {
	return field{values: make([]float64, n), missing: make([]bool, n)}
}

func (f *field) set(i int, v float64) { f.values[i] = v }
func (f *field) miss(i int)           { f.missing[i] = true }

// repair applies the fixed missing-value cascade to every derived column:
// zero-event buckets are treated as missing, interior gaps are linearly
// interpolated, edge gaps take a centered 7-bucket rolling mean of observed
// values, anything still undefined takes the overall observed mean, and
// counts are rounded back to integers.
func repair(buckets []time.Time, acc []bucketAcc) []domain.SeriesPoint {
	n := len(buckets)

	count := newField(n)
	avgMag, maxMag, minMag, stdMag := newField(n), newField(n), newField(n), newField(n)
	avgDep, maxDep, minDep := newField(n), newField(n), newField(n)

	for i, a := range acc {
		if a.count == 0 {
			count.miss(i)
		} else {
			count.set(i, float64(a.count))
		}

		if len(a.mags) == 0 {
			avgMag.miss(i)
			maxMag.miss(i)
			minMag.miss(i)
		} else {
			avgMag.set(i, mean(a.mags))
			maxMag.set(i, maxOf(a.mags))
			minMag.set(i, minOf(a.mags))
		}
		// Sample std needs two observations.
		if len(a.mags) < 2 {
			stdMag.miss(i)
		} else {
			stdMag.set(i, sampleStd(a.mags))
		}

		if len(a.depth) == 0 {
			avgDep.miss(i)
			maxDep.miss(i)
			minDep.miss(i)
		} else {
			avgDep.set(i, mean(a.depth))
			maxDep.set(i, maxOf(a.depth))
			minDep.set(i, minOf(a.depth))
		}
	}

	for _, f := range []*field{&count, &avgMag, &maxMag, &minMag, &stdMag, &avgDep, &maxDep, &minDep} {
		repairField(f)
	}

	points := make([]domain.SeriesPoint, n)
	for i := range points {
		points[i] = domain.SeriesPoint{
			Date:         buckets[i],
			Count:        int(math.Round(count.values[i])),
			AvgMagnitude: avgMag.values[i],
			MaxMagnitude: maxMag.values[i],
			MinMagnitude: minMag.values[i],
			StdMagnitude: stdMag.values[i],
			AvgDepth:     avgDep.values[i],
			MaxDepth:     maxDep.values[i],
			MinDepth:     minDep.values[i],
		}
	}
	return points
}

// repairField runs the deterministic cascade over one column in place.
// Running it on a column with no missing entries is a no-op.
func repairField(f *field) {
	n := len(f.values)
	observed := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if !f.missing[i] {
			observed = append(observed, f.values[i])
		}
	}
	if len(observed) == 0 {
		// Entire column missing: nothing to anchor the cascade, leave zeros.
		for i := range f.missing {
			f.missing[i] = false
		}
		return
	}

	interpolate(f)

	overall := mean(observed)
	for i := 0; i < n; i++ {
		if !f.missing[i] {
			continue
		}
		if v, ok := rollingMean(f, i); ok {
			f.values[i] = v
		} else {
			f.values[i] = overall
		}
		f.missing[i] = false
	}
}

// interpolate fills interior gaps with the line between the nearest
// non-missing neighbours on each side. Leading and trailing gaps have only
// one neighbour and stay missing for the later cascade stages.
func interpolate(f *field) {
	n := len(f.values)
	prev := -1
	for i := 0; i < n; i++ {
		if f.missing[i] {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (f.values[i] - f.values[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				f.values[j] = f.values[prev] + step*float64(j-prev)
				f.missing[j] = false
			}
		}
		prev = i
	}
}

// rollingMean averages the non-missing values in a centered window around i.
func rollingMean(f *field, i int) (float64, bool) {
	half := rollingWindow / 2
	var sum float64
	var cnt int
	for j := i - half; j <= i+half; j++ {
		if j < 0 || j >= len(f.values) || f.missing[j] {
			continue
		}
		sum += f.values[j]
		cnt++
	}
	if cnt == 0 {
		return 0, false
	}
	return sum / float64(cnt), true
}
