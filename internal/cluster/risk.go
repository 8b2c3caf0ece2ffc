package cluster

import "github.com/quakewatch/quake-analytics/internal/domain"

// Score thresholds for categorizing zone risk.
const (
	highRiskThreshold   = 100
	mediumRiskThreshold = 50

	// degreesToKm is the rough length of one degree of latitude.
	degreesToKm = 111
)

// RiskScore converts a zone's aggregate statistics into a bounded score:
//
//	score = (count / 10) * avgMagnitude * (1 + maxMagnitude / 10)
//
// A pure function: identical inputs reproduce the score bit for bit.
func RiskScore(count int, avgMagnitude, maxMagnitude float64) float64 {
	return float64(count) / 10 * avgMagnitude * (1 + maxMagnitude/10)
}

// RiskLevel categorizes a risk score: above 100 High, above 50 Medium,
// otherwise Low.
func RiskLevel(score float64) string {
	switch {
	case score > highRiskThreshold:
		return domain.RiskHigh
	case score > mediumRiskThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// ZoneFromCluster scores one geographic cluster as a risk zone. The radius
// is the diagonal of the bounding box converted from degrees to kilometers.
func ZoneFromCluster(c domain.Cluster) domain.RiskZone {
	score := RiskScore(c.Size, c.AvgMagnitude, c.MaxMagnitude)
	dLat := c.Bounds.MaxLat - c.Bounds.MinLat
	dLon := c.Bounds.MaxLon - c.Bounds.MinLon

	return domain.RiskZone{
		ZoneID:    c.ID,
		RiskLevel: RiskLevel(score),
		RiskScore: score,
		Count:     c.Size,
		AvgMag:    c.AvgMagnitude,
		MaxMag:    c.MaxMagnitude,
		Center:    domain.GeoPoint{Latitude: c.Centroid[0], Longitude: c.Centroid[1]},
		RadiusKm:  hypot(dLat, dLon) * degreesToKm,
	}
}

func hypot(a, b float64) float64 {
	return Point{X: a, Y: b}.distanceTo(Point{})
}
