package cluster

import "fmt"

// Magnitude and depth class boundaries for human-readable descriptions.
// Depth bands follow the usual seismological shallow/intermediate/deep split.
const (
	lowMagnitudeBelow    = 4.0
	mediumMagnitudeBelow = 6.0
	shallowDepthBelow    = 70.0
	intermediateBelow    = 300.0
)

// Describe produces a natural-language label for a feature-pair cluster,
// e.g. "Low magnitude, Shallow depth".
func Describe(avgMagnitude, avgDepth float64) string {
	mag := "High"
	switch {
	case avgMagnitude < lowMagnitudeBelow:
		mag = "Low"
	case avgMagnitude < mediumMagnitudeBelow:
		mag = "Medium"
	}

	depth := "Deep"
	switch {
	case avgDepth < shallowDepthBelow:
		depth = "Shallow"
	case avgDepth < intermediateBelow:
		depth = "Intermediate"
	}

	return fmt.Sprintf("%s magnitude, %s depth", mag, depth)
}
