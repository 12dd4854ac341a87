package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetEnrichment returns a cached enrichment payload, or nil on a miss
func (s *Store) GetEnrichment(ctx context.Context, hash string) ([]byte, error) {
	data, err := s.client.Get(ctx, EnrichmentKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get cached enrichment: %w", err)
	}
	return data, nil
}

// SetEnrichment stores an enrichment payload
func (s *Store) SetEnrichment(ctx context.Context, hash string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultEnrichmentTTL
	}
	if err := s.client.Set(ctx, EnrichmentKey(hash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache enrichment: %w", err)
	}
	return nil
}

// FlushEnrichments removes every cached enrichment and returns how many were dropped
func (s *Store) FlushEnrichments(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixEnrichment+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return n, fmt.Errorf("failed to delete cache key: %w", err)
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("failed to flush enrichment cache: %w", err)
	}
	return n, nil
}
