// Package cluster groups event records spatially (density-based) or by a
// feature pair (centroid-based), and derives per-cluster statistics and
// risk scores.
//
// Distances are Euclidean in the raw feature space. For geographic
// clustering that space is coordinate degrees, an accepted approximation at
// the operating scale (eps around 5 degrees, roughly 500 km).
package cluster

import (
	"math"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// Point is a position in a two-dimensional feature space.
type Point struct {
	X float64
	Y float64
}

func (p Point) distanceTo(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// DBSCAN labels each point with a cluster id, or domain.NoiseCluster for
// points reachable from no core point. A point is core when at least minPts
// points (itself included) lie within eps. Cluster ids are assigned in input
// order, so the labeling is deterministic for a fixed record order.
func DBSCAN(pts []Point, eps float64, minPts int) []int {
	n := len(pts)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = domain.NoiseCluster
	}
	visited := make([]bool, n)

	nextID := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(pts, i, eps)
		if len(neighbors) < minPts {
			continue // noise unless later absorbed by a core point
		}

		labels[i] = nextID
		expandCluster(pts, labels, visited, neighbors, nextID, eps, minPts)
		nextID++
	}
	return labels
}

// expandCluster grows a cluster from a core point's neighborhood, absorbing
// border points and recursing through any neighbor that is itself core.
func expandCluster(pts []Point, labels []int, visited []bool, seeds []int, id int, eps float64, minPts int) {
	for k := 0; k < len(seeds); k++ {
		j := seeds[k]
		if !visited[j] {
			visited[j] = true
			more := regionQuery(pts, j, eps)
			if len(more) >= minPts {
				seeds = append(seeds, more...)
			}
		}
		if labels[j] == domain.NoiseCluster {
			labels[j] = id
		}
	}
}

// regionQuery returns the indices of all points within eps of pts[i],
// including i itself.
func regionQuery(pts []Point, i int, eps float64) []int {
	var out []int
	for j := range pts {
		if pts[i].distanceTo(pts[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}
