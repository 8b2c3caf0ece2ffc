// Package cache is the shared result cache fronting the analytics core,
// keyed by a hash of (operation, normalized parameters) with a fixed TTL.
// It provides no single-flight interlock: two identical concurrent requests
// may both miss and both recompute, which is an accepted inefficiency since
// every computation is idempotent and side-effect free.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores serialized analytics results. Implementations must be safe
// for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Flush drops everything, used when underlying records change.
	Flush(ctx context.Context) error
}

// Key builds a deterministic cache key from an operation name and its
// normalized parameters.
func Key(op string, params ...string) string {
	h := sha256.Sum256([]byte(op + "|" + strings.Join(params, "|")))
	return op + ":" + hex.EncodeToString(h[:16])
}
