// Package analytics orchestrates every analytics request: read a snapshot of
// records from the store, compute through the engine packages, cache the
// serialized result. Each request is stateless and synchronous; concurrent
// requests share nothing mutable inside the core.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quakewatch/quake-analytics/internal/cache"
	"github.com/quakewatch/quake-analytics/internal/domain"
	"github.com/quakewatch/quake-analytics/internal/forecast"
	"github.com/quakewatch/quake-analytics/internal/observability"
	"github.com/quakewatch/quake-analytics/internal/store"
)

// RecordStore is the read-only contract the core consumes.
type RecordStore interface {
	Query(ctx context.Context, f store.Filter) ([]domain.EventRecord, error)
	Stats(ctx context.Context, start, end time.Time) (store.Stats, error)
	Ping(ctx context.Context) error
}

// Service computes all analytics operations.
type Service struct {
	store   RecordStore
	cache   cache.Cache
	cascade *forecast.Cascade
	logger  *slog.Logger
	metrics *observability.Metrics
	ttl     time.Duration
}

// New wires a Service.
func New(rs RecordStore, c cache.Cache, logger *slog.Logger, metrics *observability.Metrics, ttl time.Duration) *Service {
	return &Service{
		store:   rs,
		cache:   c,
		cascade: forecast.NewCascade(logger),
		logger:  logger,
		metrics: metrics,
		ttl:     ttl,
	}
}

// CheckReadiness reports whether the record store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// StoreStats passes the record store's aggregate summary through.
func (s *Service) StoreStats(ctx context.Context, tr TimeRange) (store.Stats, error) {
	return cached(ctx, s, cache.Key("stats", tr.key()), func() (store.Stats, error) {
		return s.store.Stats(ctx, tr.Start, tr.End)
	})
}

// cached looks the key up, computing and storing the JSON-serialized result
// on a miss. Cache failures degrade to recomputation, never to request
// failure.
func cached[T any](ctx context.Context, s *Service, key string, compute func() (T, error)) (T, error) {
	var zero T

	if data, err := s.cache.Get(ctx, key); err == nil {
		var out T
		if err := json.Unmarshal(data, &out); err == nil {
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return out, nil
		}
		s.logger.Warn("cache entry undecodable, recomputing", "key", key)
	} else if err != cache.ErrMiss {
		s.logger.Warn("cache get failed", "key", key, "error", err)
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	start := time.Now()
	out, err := compute()
	if err != nil {
		return zero, err
	}
	s.metrics.ComputeDuration.WithLabelValues(opFromKey(key)).Observe(time.Since(start).Seconds())

	if data, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("cache set failed", "key", key, "error", err)
		}
	}
	return out, nil
}

// opFromKey recovers the operation label from a cache key ("op:hash").
func opFromKey(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}

// fetch reads a record snapshot, timing the store round trip.
func (s *Service) fetch(ctx context.Context, f store.Filter) ([]domain.EventRecord, error) {
	start := time.Now()
	records, err := s.store.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	s.metrics.StoreQueryDuration.Observe(time.Since(start).Seconds())
	return records, nil
}
