// Package domain models seismic event records and the derived analytics types.
//
// # Data Source
//
// Event records originate from the USGS FDSN event feed
// (https://earthquake.usgs.gov/fdsnws/event/1/). An upstream ingestion job
// polls the feed and upserts validated records into the Postgres record
// store; this service only reads them.
//
// # Field Conventions
//
// Magnitude:
//
//	Nullable. The feed publishes events before a magnitude is assigned, and
//	some networks never assign one. A nil Magnitude means "not measured" and
//	is never conflated with 0; the series repair cascade depends on that
//	distinction.
//
// Depth:
//
//	Kilometers below the surface, >= 0. Depth classes follow the usual
//	seismological bands: shallow < 70 km, intermediate < 300 km, deep >= 300 km.
//
// Significance:
//
//	The USGS "sig" value, a non-negative integer combining magnitude, felt
//	reports, and estimated impact.
//
// # Derived Types
//
// SeriesPoint, Decomposition, Cluster, RiskZone, and ForecastPoint are all
// recomputed per request from a snapshot of records; none has persisted
// identity. Their invariants (contiguous periods, additive decomposition,
// single cluster membership, clamped forecast bounds) are documented on the
// types and enforced by the packages that produce them.
package domain
