package analytics

import (
	"fmt"
	"time"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// dateLayout is the wire format for start_date and end_date.
const dateLayout = "2006-01-02"

// Forecast horizon bounds.
const (
	MinForecastDays = 1
	MaxForecastDays = 30
)

// Cluster count bounds per mode.
const (
	MinClusters           = 2
	MaxGeographicClusters = 20
	MaxFeatureClusters    = 10
)

// TimeRange is an optional date window. Zero values mean unbounded.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// ParseTimeRange validates optional YYYY-MM-DD bounds. An end date covers
// the whole day: the bound is pushed to the last instant of that day so
// events after midnight are not dropped.
func ParseTimeRange(startStr, endStr string) (TimeRange, error) {
	var tr TimeRange
	if startStr != "" {
		t, err := time.ParseInLocation(dateLayout, startStr, time.UTC)
		if err != nil {
			return TimeRange{}, fmt.Errorf("start_date %q is not YYYY-MM-DD: %w", startStr, domain.ErrInvalidParameters)
		}
		tr.Start = t
	}
	if endStr != "" {
		t, err := time.ParseInLocation(dateLayout, endStr, time.UTC)
		if err != nil {
			return TimeRange{}, fmt.Errorf("end_date %q is not YYYY-MM-DD: %w", endStr, domain.ErrInvalidParameters)
		}
		tr.End = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !tr.Start.IsZero() && !tr.End.IsZero() && tr.End.Before(tr.Start) {
		return TimeRange{}, fmt.Errorf("start_date after end_date: %w", domain.ErrInvalidParameters)
	}
	return tr, nil
}

// key normalizes the range for cache keys.
func (tr TimeRange) key() string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format(time.RFC3339Nano)
	}
	return format(tr.Start) + ".." + format(tr.End)
}

// validateDays bounds a forecast horizon.
func validateDays(days int) error {
	if days < MinForecastDays || days > MaxForecastDays {
		return fmt.Errorf("days must be in [%d,%d], got %d: %w",
			MinForecastDays, MaxForecastDays, days, domain.ErrInvalidParameters)
	}
	return nil
}
