// Package store adapts the Postgres record store to the analytics core.
// The core is a pure reader: every statement here is a SELECT.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/quakewatch/quake-analytics/internal/domain"
)

// Filter narrows a record query. Zero times and nil magnitudes mean
// unbounded; RequireMagnitude drops records without a measured magnitude,
// which clustering and correlation need.
type Filter struct {
	Start            time.Time
	End              time.Time
	MinMagnitude     *float64
	MaxMagnitude     *float64
	RequireMagnitude bool
}

// Stats is the aggregate summary the record store computes server-side.
type Stats struct {
	TotalCount     int       `json:"total_count"`
	AvgMagnitude   float64   `json:"avg_magnitude"`
	MaxMagnitude   float64   `json:"max_magnitude"`
	MinMagnitude   float64   `json:"min_magnitude"`
	AvgDepth       float64   `json:"avg_depth"`
	DateRangeStart time.Time `json:"date_range_start"`
	DateRangeEnd   time.Time `json:"date_range_end"`
}

// Postgres reads event records from the earthquakes table.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// Query returns the records matching the filter, ordered by time ascending.
func (p *Postgres) Query(ctx context.Context, f Filter) ([]domain.EventRecord, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, time, latitude, longitude, depth, magnitude, magnitude_type, place, sig, tsunami
		FROM earthquakes WHERE 1=1`)
	var args []any

	if f.RequireMagnitude {
		sb.WriteString(" AND magnitude IS NOT NULL")
	}
	addCond := func(cond string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, " AND %s $%d", cond, len(args))
	}
	if !f.Start.IsZero() {
		addCond("time >=", f.Start)
	}
	if !f.End.IsZero() {
		addCond("time <=", f.End)
	}
	if f.MinMagnitude != nil {
		addCond("magnitude >=", *f.MinMagnitude)
	}
	if f.MaxMagnitude != nil {
		addCond("magnitude <=", *f.MaxMagnitude)
	}
	sb.WriteString(" ORDER BY time")

	rows, err := p.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	defer rows.Close()

	var records []domain.EventRecord
	for rows.Next() {
		var r domain.EventRecord
		var mag sql.NullFloat64
		var magType, place sql.NullString
		var sig sql.NullInt64
		var tsunami sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Time, &r.Latitude, &r.Longitude, &r.Depth,
			&mag, &magType, &place, &sig, &tsunami); err != nil {
			return nil, fmt.Errorf("scan record: %v: %w", err, domain.ErrUpstreamUnavailable)
		}
		if mag.Valid {
			v := mag.Float64
			r.Magnitude = &v
		}
		r.MagnitudeType = magType.String
		r.Place = place.String
		r.Significance = int(sig.Int64)
		r.Tsunami = tsunami.Int64 != 0
		r.Time = r.Time.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	return records, nil
}

// Stats returns the aggregate summary for the optional date range.
func (p *Postgres) Stats(ctx context.Context, start, end time.Time) (Stats, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT COUNT(*),
		COALESCE(AVG(magnitude), 0), COALESCE(MAX(magnitude), 0), COALESCE(MIN(magnitude), 0),
		COALESCE(AVG(depth), 0), MIN(time), MAX(time)
		FROM earthquakes WHERE 1=1`)
	var args []any
	if !start.IsZero() {
		args = append(args, start)
		fmt.Fprintf(&sb, " AND time >= $%d", len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		fmt.Fprintf(&sb, " AND time <= $%d", len(args))
	}

	var s Stats
	var lo, hi sql.NullTime
	err := p.db.QueryRowContext(ctx, sb.String(), args...).Scan(
		&s.TotalCount, &s.AvgMagnitude, &s.MaxMagnitude, &s.MinMagnitude, &s.AvgDepth, &lo, &hi)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	s.DateRangeStart = lo.Time.UTC()
	s.DateRangeEnd = hi.Time.UTC()
	return s, nil
}

// Ping reports whether the store is reachable, for readiness checks.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	return nil
}
