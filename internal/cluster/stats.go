package cluster

import (
	"math"
	"sort"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// GeographicSummaries derives per-cluster statistics after assignment: size,
// centroid (mean coordinates), bounding box, magnitude and depth aggregates.
// Noise points are excluded; clusters come back ordered by id.
func GeographicSummaries(records []domain.EventRecord, labels []int) []domain.Cluster {
	groups := groupByLabel(labels)

	clusters := make([]domain.Cluster, 0, len(groups))
	for _, id := range sortedIDs(groups) {
		members := groups[id]
		c := domain.Cluster{ID: id, Size: len(members)}

		var latSum, lonSum, depthSum float64
		var magSum float64
		magCount := 0
		c.Bounds = domain.Bounds{MinLat: math.Inf(1), MaxLat: math.Inf(-1), MinLon: math.Inf(1), MaxLon: math.Inf(-1)}
		c.MaxMagnitude = math.Inf(-1)

		for _, i := range members {
			r := records[i]
			latSum += r.Latitude
			lonSum += r.Longitude
			depthSum += r.Depth
			c.Bounds.MinLat = math.Min(c.Bounds.MinLat, r.Latitude)
			c.Bounds.MaxLat = math.Max(c.Bounds.MaxLat, r.Latitude)
			c.Bounds.MinLon = math.Min(c.Bounds.MinLon, r.Longitude)
			c.Bounds.MaxLon = math.Max(c.Bounds.MaxLon, r.Longitude)
			if r.HasMagnitude() {
				magSum += *r.Magnitude
				magCount++
				c.MaxMagnitude = math.Max(c.MaxMagnitude, *r.Magnitude)
			}
		}

		n := float64(len(members))
		c.Centroid = []float64{latSum / n, lonSum / n}
		c.AvgDepth = depthSum / n
		if magCount > 0 {
			c.AvgMagnitude = magSum / float64(magCount)
		} else {
			c.MaxMagnitude = 0
		}
		clusters = append(clusters, c)
	}
	return clusters
}

// FeatureStats are the aggregate statistics of one feature-pair cluster.
type FeatureStats struct {
	AvgMagnitude float64 `json:"avg_magnitude"`
	StdMagnitude float64 `json:"std_magnitude"`
	MinMagnitude float64 `json:"min_magnitude"`
	MaxMagnitude float64 `json:"max_magnitude"`
	AvgDepth     float64 `json:"avg_depth"`
	StdDepth     float64 `json:"std_depth"`
	MinDepth     float64 `json:"min_depth"`
	MaxDepth     float64 `json:"max_depth"`
}

// FeatureSummary computes magnitude/depth aggregates for the members of one
// cluster. Callers pass the member indices of records that all carry a
// measured magnitude.
func FeatureSummary(records []domain.EventRecord, members []int) FeatureStats {
	mags := make([]float64, 0, len(members))
	depths := make([]float64, 0, len(members))
	for _, i := range members {
		if records[i].HasMagnitude() {
			mags = append(mags, *records[i].Magnitude)
		}
		depths = append(depths, records[i].Depth)
	}
	return FeatureStats{
		AvgMagnitude: meanOf(mags),
		StdMagnitude: stdOf(mags),
		MinMagnitude: minimum(mags),
		MaxMagnitude: maximum(mags),
		AvgDepth:     meanOf(depths),
		StdDepth:     stdOf(depths),
		MinDepth:     minimum(depths),
		MaxDepth:     maximum(depths),
	}
}

// Members returns the record indices per cluster id, noise excluded.
func Members(labels []int) map[int][]int {
	return groupByLabel(labels)
}

func groupByLabel(labels []int) map[int][]int {
	groups := make(map[int][]int)
	for i, id := range labels {
		if id == domain.NoiseCluster {
			continue
		}
		groups[id] = append(groups[id], i)
	}
	return groups
}

func sortedIDs(groups map[int][]int) []int {
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdOf is the sample standard deviation, 0 for fewer than two values.
func stdOf(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := meanOf(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - mu) * (x - mu)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func minimum(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maximum(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
