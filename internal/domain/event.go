package domain

import "time"

// EventRecord is one validated seismic event as stored by the record store.
// The analytics core reads these, never mutates them. Magnitude is a pointer
// because upstream feeds report events before a magnitude is assigned; the
// repair cascade depends on distinguishing "missing" from 0.
type EventRecord struct {
	ID            string    `json:"id"`
	Time          time.Time `json:"time"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Depth         float64   `json:"depth"` // km, >= 0
	Magnitude     *float64  `json:"magnitude"`
	MagnitudeType string    `json:"magnitude_type,omitempty"`
	Place         string    `json:"place,omitempty"`
	Significance  int       `json:"significance"`
	Tsunami       bool      `json:"tsunami"`
}

// HasMagnitude reports whether the record carries a measured magnitude.
func (r EventRecord) HasMagnitude() bool {
	return r.Magnitude != nil
}

// SeriesPoint is one resampled bucket of a regular time series. Derived on
// every request; never persisted. After repair no field is null unless the
// whole series is empty.
type SeriesPoint struct {
	Date         time.Time `json:"date"`
	Count        int       `json:"count"`
	AvgMagnitude float64   `json:"avg_magnitude"`
	MaxMagnitude float64   `json:"max_magnitude"`
	MinMagnitude float64   `json:"min_magnitude"`
	StdMagnitude float64   `json:"std_magnitude"`
	AvgDepth     float64   `json:"avg_depth"`
	MaxDepth     float64   `json:"max_depth"`
	MinDepth     float64   `json:"min_depth"`
}

// Granularity is the calendar bucket width used for resampling.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity maps a query-string period to a Granularity.
func ParseGranularity(s string) (Granularity, bool) {
	switch Granularity(s) {
	case Daily, Weekly, Monthly:
		return Granularity(s), true
	}
	return "", false
}

// LinearTrend is an ordinary-least-squares fit of a series against its
// bucket index. Available for any series of length >= 2.
type LinearTrend struct {
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	RSquared  float64   `json:"r_squared"`
	TrendLine []float64 `json:"trend_line"`
}

// DecompositionPoint is one period of a trend/seasonal/residual split.
// Nil components mean "undefined at this period" (moving-average edges,
// or residual in the short regime).
type DecompositionPoint struct {
	Date     time.Time `json:"date"`
	Observed float64   `json:"observed"`
	Trend    *float64  `json:"trend"`
	Seasonal *float64  `json:"seasonal"`
	Residual *float64  `json:"residual"`
}

// Decomposition is the full result of a seasonal split. Model names which
// regime produced it: "additive" for the classical period-12 decomposition,
// "moving_average" for the short-series fallback.
type Decomposition struct {
	Points           []DecompositionPoint `json:"data"`
	Period           int                  `json:"period"`
	Model            string               `json:"model"`
	TrendDirection   string               `json:"trend_direction"`
	SeasonalStrength float64              `json:"seasonal_strength"`
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Bounds is an axis-aligned bounding box in degree space.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// NoiseCluster is the sentinel id for points no cluster absorbed.
const NoiseCluster = -1

// Cluster is one group of events with its aggregate statistics. Centroid
// coordinates are in the feature space the clustering ran in, reported in
// original (unstandardized) units.
type Cluster struct {
	ID           int       `json:"cluster_id"`
	Size         int       `json:"size"`
	Centroid     []float64 `json:"centroid"`
	Bounds       Bounds    `json:"bounds"`
	AvgMagnitude float64   `json:"avg_magnitude"`
	MaxMagnitude float64   `json:"max_magnitude"`
	AvgDepth     float64   `json:"avg_depth"`
}

// ClusteredPoint is an event annotated with its assigned cluster id
// (or NoiseCluster).
type ClusteredPoint struct {
	ID        string    `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Magnitude float64   `json:"magnitude"`
	Depth     float64   `json:"depth"`
	Cluster   int       `json:"cluster"`
	Time      time.Time `json:"time"`
}

// RiskZone is a geographic cluster scored for seismic risk.
type RiskZone struct {
	ZoneID    int      `json:"zone_id"`
	RiskLevel string   `json:"risk_level"`
	RiskScore float64  `json:"risk_score"`
	Count     int      `json:"earthquake_count"`
	AvgMag    float64  `json:"avg_magnitude"`
	MaxMag    float64  `json:"max_magnitude"`
	Center    GeoPoint `json:"center"`
	RadiusKm  float64  `json:"radius_km"`
}

// Risk levels shared by the cluster scorer and the forecast classifier.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// ForecastPoint is one day of a forecast. Invariant: Lower <= Predicted <= Upper.
type ForecastPoint struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted_value"`
	Lower     float64   `json:"lower_bound"`
	Upper     float64   `json:"upper_bound"`
}

// Clamp enforces the bound invariant, widening the interval to cover the
// prediction when a model reports inconsistent bounds.
func (p *ForecastPoint) Clamp() {
	if p.Lower > p.Predicted {
		p.Lower = p.Predicted
	}
	if p.Upper < p.Predicted {
		p.Upper = p.Predicted
	}
}

// FloorAtZero clips negative values, for series that cannot go below zero
// (event counts).
func (p *ForecastPoint) FloorAtZero() {
	if p.Predicted < 0 {
		p.Predicted = 0
	}
	if p.Lower < 0 {
		p.Lower = 0
	}
	if p.Upper < 0 {
		p.Upper = 0
	}
}
