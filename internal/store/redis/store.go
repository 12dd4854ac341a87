// Package redis keeps short-lived shared state in Redis: cached enrichment results,
// per-user transfer locks and the summary of each user's last transfer run.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultEnrichmentTTL is how long a successful enrichment is served from cache (7 days)
	DefaultEnrichmentTTL = 7 * 24 * time.Hour
	// DefaultLockTTL bounds a transfer lock if its holder dies (10 minutes)
	DefaultLockTTL = 10 * time.Minute
	// DefaultRunTTL is how long the last run summary is kept (30 days)
	DefaultRunTTL = 30 * 24 * time.Hour
)

// Store handles Redis operations for the cache, locks and run summaries
type Store struct {
	client  *redis.Client
	lockTTL time.Duration
	runTTL  time.Duration
}

// NewStore creates a new Redis store. Zero TTLs fall back to the defaults.
func NewStore(client *redis.Client, lockTTL time.Duration) *Store {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &Store{
		client:  client,
		lockTTL: lockTTL,
		runTTL:  DefaultRunTTL,
	}
}

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
