package analytics

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/quakewatch/quake-analytics/internal/cache"
	"github.com/quakewatch/quake-analytics/internal/cluster"
	"github.com/quakewatch/quake-analytics/internal/domain"
	"github.com/quakewatch/quake-analytics/internal/store"
)

// Fixed DBSCAN density parameters. Geographic clustering takes eps from the
// caller; risk zones use a coarser, denser configuration so only sustained
// activity forms a zone.
const (
	geographicMinPoints = 5
	riskZoneEps         = 5.0
	riskZoneMinPoints   = 10
)

// ClusterAlgorithm selects how geographic clustering groups events.
type ClusterAlgorithm string

const (
	AlgorithmDBSCAN ClusterAlgorithm = "dbscan"
	AlgorithmKMeans ClusterAlgorithm = "kmeans"
)

// ParseClusterAlgorithm maps the query-string algorithm to a ClusterAlgorithm.
func ParseClusterAlgorithm(s string) (ClusterAlgorithm, bool) {
	switch ClusterAlgorithm(s) {
	case AlgorithmDBSCAN, AlgorithmKMeans:
		return ClusterAlgorithm(s), true
	}
	return "", false
}

// GeographicParams configure a geographic clustering run. Eps applies to
// dbscan, K to kmeans.
type GeographicParams struct {
	Algorithm ClusterAlgorithm
	Eps       float64
	K         int
}

// GeographicSummary counts the outcome of a clustering run.
type GeographicSummary struct {
	TotalPoints int `json:"total_points"`
	NClusters   int `json:"n_clusters"`
	NNoise      int `json:"n_noise"`
}

// GeographicResult is the /clusters/geographic payload.
type GeographicResult struct {
	Algorithm string                  `json:"algorithm"`
	Points    []domain.ClusteredPoint `json:"points"`
	Clusters  []domain.Cluster        `json:"clusters"`
	Summary   GeographicSummary       `json:"summary"`
}

// GeographicClusters groups events by epicenter coordinates. DBSCAN runs in
// raw degree space and labels sparse points noise; kmeans assigns every
// point. Results are deterministic in record order.
func (s *Service) GeographicClusters(ctx context.Context, p GeographicParams, tr TimeRange) (GeographicResult, error) {
	switch p.Algorithm {
	case AlgorithmDBSCAN:
		if p.Eps <= 0 {
			return GeographicResult{}, fmt.Errorf("eps must be positive, got %g: %w", p.Eps, domain.ErrInvalidParameters)
		}
	case AlgorithmKMeans:
		if p.K < MinClusters || p.K > MaxGeographicClusters {
			return GeographicResult{}, fmt.Errorf("n_clusters must be in [%d,%d], got %d: %w",
				MinClusters, MaxGeographicClusters, p.K, domain.ErrInvalidParameters)
		}
	default:
		return GeographicResult{}, fmt.Errorf("unknown algorithm %q: %w", p.Algorithm, domain.ErrInvalidParameters)
	}

	key := cache.Key("clusters_geographic", string(p.Algorithm),
		strconv.FormatFloat(p.Eps, 'g', -1, 64), strconv.Itoa(p.K), tr.key())
	return cached(ctx, s, key, func() (GeographicResult, error) {
		records, err := s.fetch(ctx, store.Filter{Start: tr.Start, End: tr.End})
		if err != nil {
			return GeographicResult{}, err
		}

		result := GeographicResult{
			Algorithm: string(p.Algorithm),
			Points:    []domain.ClusteredPoint{},
			Clusters:  []domain.Cluster{},
		}
		if len(records) == 0 {
			return result, nil
		}

		pts := make([]cluster.Point, len(records))
		for i, r := range records {
			pts[i] = cluster.Point{X: r.Latitude, Y: r.Longitude}
		}

		var labels []int
		switch p.Algorithm {
		case AlgorithmDBSCAN:
			labels = cluster.DBSCAN(pts, p.Eps, geographicMinPoints)
		case AlgorithmKMeans:
			labels, _, err = cluster.KMeans(pts, p.K)
			if err != nil {
				return GeographicResult{}, err
			}
		}

		result.Points = annotate(records, labels)
		result.Clusters = cluster.GeographicSummaries(records, labels)
		result.Summary = GeographicSummary{
			TotalPoints: len(records),
			NClusters:   len(result.Clusters),
			NNoise:      countNoise(labels),
		}
		return result, nil
	})
}

// FeatureCentroid is a magnitude-cluster center in original units.
type FeatureCentroid struct {
	Magnitude float64 `json:"magnitude"`
	Depth     float64 `json:"depth"`
}

// FeatureCluster is one magnitude/depth cluster with its description.
type FeatureCluster struct {
	ID          int                  `json:"cluster_id"`
	Size        int                  `json:"size"`
	Centroid    FeatureCentroid      `json:"centroid"`
	Stats       cluster.FeatureStats `json:"statistics"`
	Description string               `json:"description"`
}

// MagnitudeResult is the /clusters/magnitude payload.
type MagnitudeResult struct {
	Points    []domain.ClusteredPoint `json:"points"`
	Clusters  []FeatureCluster        `json:"clusters"`
	NClusters int                     `json:"n_clusters"`
}

// MagnitudeClusters partitions measured events in standardized
// (magnitude, depth) space with k-means. Records without a magnitude are
// excluded before clustering. Centroids come back in original units.
func (s *Service) MagnitudeClusters(ctx context.Context, k int, tr TimeRange) (MagnitudeResult, error) {
	if k < MinClusters || k > MaxFeatureClusters {
		return MagnitudeResult{}, fmt.Errorf("n_clusters must be in [%d,%d], got %d: %w",
			MinClusters, MaxFeatureClusters, k, domain.ErrInvalidParameters)
	}

	key := cache.Key("clusters_magnitude", strconv.Itoa(k), tr.key())
	return cached(ctx, s, key, func() (MagnitudeResult, error) {
		records, err := s.fetch(ctx, store.Filter{Start: tr.Start, End: tr.End, RequireMagnitude: true})
		if err != nil {
			return MagnitudeResult{}, err
		}

		result := MagnitudeResult{Points: []domain.ClusteredPoint{}, Clusters: []FeatureCluster{}}
		if len(records) == 0 {
			return result, nil
		}

		raw := make([]cluster.Point, len(records))
		for i, r := range records {
			raw[i] = cluster.Point{X: *r.Magnitude, Y: r.Depth}
		}
		scaled, scaler := cluster.Standardize(raw)

		labels, centroids, err := cluster.KMeans(scaled, k)
		if err != nil {
			return MagnitudeResult{}, err
		}

		result.Points = annotate(records, labels)
		members := cluster.Members(labels)
		for id := 0; id < len(centroids); id++ {
			idx := members[id]
			if len(idx) == 0 {
				continue
			}
			center := scaler.Inverse(centroids[id])
			stats := cluster.FeatureSummary(records, idx)
			result.Clusters = append(result.Clusters, FeatureCluster{
				ID:          id,
				Size:        len(idx),
				Centroid:    FeatureCentroid{Magnitude: center.X, Depth: center.Y},
				Stats:       stats,
				Description: cluster.Describe(stats.AvgMagnitude, stats.AvgDepth),
			})
		}
		result.NClusters = len(result.Clusters)
		return result, nil
	})
}

// RiskZoneSummary counts zones by level.
type RiskZoneSummary struct {
	TotalZones  int `json:"total_zones"`
	HighRisk    int `json:"high_risk_zones"`
	MediumRisk  int `json:"medium_risk_zones"`
	LowRisk     int `json:"low_risk_zones"`
	TotalEvents int `json:"total_clustered_earthquakes"`
}

// RiskZonesResult is the /clusters/risk-zones payload.
type RiskZonesResult struct {
	Zones   []domain.RiskZone `json:"risk_zones"`
	Summary RiskZoneSummary   `json:"summary"`
}

// RiskZones finds dense geographic concentrations with DBSCAN and scores
// each as a risk zone, highest score first.
func (s *Service) RiskZones(ctx context.Context, tr TimeRange) (RiskZonesResult, error) {
	key := cache.Key("risk_zones", tr.key())
	return cached(ctx, s, key, func() (RiskZonesResult, error) {
		records, err := s.fetch(ctx, store.Filter{Start: tr.Start, End: tr.End, RequireMagnitude: true})
		if err != nil {
			return RiskZonesResult{}, err
		}

		result := RiskZonesResult{Zones: []domain.RiskZone{}}
		if len(records) == 0 {
			return result, nil
		}

		pts := make([]cluster.Point, len(records))
		for i, r := range records {
			pts[i] = cluster.Point{X: r.Latitude, Y: r.Longitude}
		}
		labels := cluster.DBSCAN(pts, riskZoneEps, riskZoneMinPoints)

		for _, c := range cluster.GeographicSummaries(records, labels) {
			zone := cluster.ZoneFromCluster(c)
			result.Zones = append(result.Zones, zone)
			result.Summary.TotalEvents += zone.Count
			switch zone.RiskLevel {
			case domain.RiskHigh:
				result.Summary.HighRisk++
			case domain.RiskMedium:
				result.Summary.MediumRisk++
			default:
				result.Summary.LowRisk++
			}
		}
		sort.SliceStable(result.Zones, func(i, j int) bool {
			return result.Zones[i].RiskScore > result.Zones[j].RiskScore
		})
		result.Summary.TotalZones = len(result.Zones)
		return result, nil
	})
}

func annotate(records []domain.EventRecord, labels []int) []domain.ClusteredPoint {
	points := make([]domain.ClusteredPoint, len(records))
	for i, r := range records {
		p := domain.ClusteredPoint{
			ID:        r.ID,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Depth:     r.Depth,
			Cluster:   labels[i],
			Time:      r.Time,
		}
		if r.HasMagnitude() {
			p.Magnitude = *r.Magnitude
		}
		points[i] = p
	}
	return points
}

func countNoise(labels []int) int {
	n := 0
	for _, id := range labels {
		if id == domain.NoiseCluster {
			n++
		}
	}
	return n
}
