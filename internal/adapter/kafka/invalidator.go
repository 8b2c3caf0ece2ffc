// Package kafka consumes record-change notifications and flushes the result
// cache so analytics recompute against fresh data.
package kafka

import (
	"context"
	"errors"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/quakewatch/quake-analytics/internal/cache"
	"github.com/quakewatch/quake-analytics/internal/config"
	"github.com/quakewatch/quake-analytics/internal/observability"
)

// Invalidator flushes the cache whenever the ingestion pipeline publishes a
// record-change message. Message content does not matter; any message on the
// topic means cached results may be stale.
type Invalidator struct {
	reader  *kafkago.Reader
	cache   cache.Cache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewInvalidator creates a consumer on the configured invalidation topic.
func NewInvalidator(cfg *config.Config, c cache.Cache, logger *slog.Logger, metrics *observability.Metrics) *Invalidator {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaInvalidationTopic,
		GroupID: cfg.KafkaGroupID,
	})
	return &Invalidator{reader: reader, cache: c, logger: logger, metrics: metrics}
}

// Run consumes until the context is canceled. Flush failures are logged and
// the loop continues; a stale cache entry expires by TTL anyway.
func (inv *Invalidator) Run(ctx context.Context) error {
	inv.logger.Info("cache invalidator starting",
		"topic", inv.reader.Config().Topic, "group", inv.reader.Config().GroupID)

	for {
		msg, err := inv.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		if err := inv.cache.Flush(ctx); err != nil {
			inv.logger.Warn("cache flush failed", "error", err)
			continue
		}
		inv.metrics.CacheFlushes.Inc()
		inv.logger.Info("cache flushed",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

// Close releases the underlying consumer.
func (inv *Invalidator) Close() error {
	return inv.reader.Close()
}
