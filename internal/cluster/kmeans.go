package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

const (
	// kmeansSeed fixes the centroid initialization so identical inputs
	// always produce identical clusters.
	kmeansSeed = 42

	// maxIterations bounds Lloyd refinement when assignments oscillate.
	maxIterations = 300
)

// KMeans partitions points into k clusters by Lloyd's algorithm with
// k-means++ initialization from a fixed-seed source. Every point is assigned
// to exactly one cluster. Requesting more clusters than there are distinct
// points is ErrInvalidParameters.
func KMeans(pts []Point, k int) (labels []int, centroids []Point, err error) {
	if k < 1 {
		return nil, nil, fmt.Errorf("kmeans: k must be positive, got %d: %w", k, domain.ErrInvalidParameters)
	}
	if distinct := distinctPoints(pts); k > distinct {
		return nil, nil, fmt.Errorf("kmeans: k=%d exceeds %d distinct points: %w",
			k, distinct, domain.ErrInvalidParameters)
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	centroids = seedCentroids(pts, k, rng)
	labels = make([]int, len(pts))

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range pts {
			best := nearestCentroid(p, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(pts, labels, centroids)
	}
	return labels, centroids, nil
}

// seedCentroids picks k starting centers by k-means++: the first uniformly,
// the rest weighted by squared distance to the nearest chosen center.
func seedCentroids(pts []Point, k int, rng *rand.Rand) []Point {
	centroids := make([]Point, 0, k)
	centroids = append(centroids, pts[rng.Intn(len(pts))])

	d2 := make([]float64, len(pts))
	for len(centroids) < k {
		var total float64
		for i, p := range pts {
			d := p.distanceTo(centroids[nearestCentroid(p, centroids)])
			d2[i] = d * d
			total += d2[i]
		}
		if total == 0 {
			// Remaining points coincide with chosen centers; the distinct-point
			// check guarantees this cannot happen before k centers exist.
			centroids = append(centroids, pts[rng.Intn(len(pts))])
			continue
		}
		target := rng.Float64() * total
		var acc float64
		for i := range pts {
			acc += d2[i]
			if acc >= target {
				centroids = append(centroids, pts[i])
				break
			}
		}
	}
	return centroids
}

func nearestCentroid(p Point, centroids []Point) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := p.distanceTo(centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// recomputeCentroids moves each center to the mean of its members. Empty
// clusters keep their previous center.
func recomputeCentroids(pts []Point, labels []int, centroids []Point) {
	sums := make([]Point, len(centroids))
	counts := make([]int, len(centroids))
	for i, p := range pts {
		c := labels[i]
		sums[c].X += p.X
		sums[c].Y += p.Y
		counts[c]++
	}
	for c := range centroids {
		if counts[c] > 0 {
			centroids[c] = Point{X: sums[c].X / float64(counts[c]), Y: sums[c].Y / float64(counts[c])}
		}
	}
}

func distinctPoints(pts []Point) int {
	seen := make(map[Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// Scaler standardizes a feature pair to zero mean and unit variance so
// features on different scales contribute comparably to distances.
type Scaler struct {
	MeanX, MeanY float64
	StdX, StdY   float64
}

// Standardize fits a Scaler to the points and returns the scaled copy.
// A zero-variance feature is left unscaled (divisor 1).
func Standardize(pts []Point) ([]Point, Scaler) {
	n := float64(len(pts))
	s := Scaler{StdX: 1, StdY: 1}
	if n == 0 {
		return nil, s
	}

	for _, p := range pts {
		s.MeanX += p.X
		s.MeanY += p.Y
	}
	s.MeanX /= n
	s.MeanY /= n

	var vx, vy float64
	for _, p := range pts {
		vx += (p.X - s.MeanX) * (p.X - s.MeanX)
		vy += (p.Y - s.MeanY) * (p.Y - s.MeanY)
	}
	if sd := math.Sqrt(vx / n); sd > 0 {
		s.StdX = sd
	}
	if sd := math.Sqrt(vy / n); sd > 0 {
		s.StdY = sd
	}

	scaled := make([]Point, len(pts))
	for i, p := range pts {
		scaled[i] = Point{X: (p.X - s.MeanX) / s.StdX, Y: (p.Y - s.MeanY) / s.StdY}
	}
	return scaled, s
}

// Inverse maps a point in standardized space back to original units.
func (s Scaler) Inverse(p Point) Point {
	return Point{X: p.X*s.StdX + s.MeanX, Y: p.Y*s.StdY + s.MeanY}
}
