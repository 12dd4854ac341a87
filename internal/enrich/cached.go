package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/MrSnakeDoc/canon/internal/logger"
)

// Cache results reported to CacheObserver.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Cache stores serialized results. Get returns nil, nil on a miss.
type Cache interface {
	GetEnrichment(ctx context.Context, key string) ([]byte, error)
	SetEnrichment(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// CacheObserver is notified of every cache lookup.
type CacheObserver interface {
	ObserveEnrichmentCache(result string)
}

// CachedEnricher serves repeated URLs from a cache. Only error-free results are
// stored, so a transient failure is retried on the next call.
type CachedEnricher struct {
	next     Enricher
	cache    Cache
	ttl      time.Duration
	log      logger.Logger
	observer CacheObserver
}

func NewCachedEnricher(next Enricher, cache Cache, ttl time.Duration, log logger.Logger, observer CacheObserver) *CachedEnricher {
	return &CachedEnricher{next: next, cache: cache, ttl: ttl, log: log, observer: observer}
}

// FetchMetadata implements Enricher.
func (c *CachedEnricher) FetchMetadata(ctx context.Context, rawURL string) *Result {
	key := CacheKey(rawURL)

	data, err := c.cache.GetEnrichment(ctx, key)
	switch {
	case err != nil:
		c.observe(CacheError)
		c.log.Warn("enrichment cache read failed", logger.String("url", rawURL), logger.Error(err))
	case data != nil:
		var cached Result
		if err := json.Unmarshal(data, &cached); err == nil {
			c.observe(CacheHit)
			return &cached
		}
		c.observe(CacheError)
		c.log.Warn("discarding corrupt enrichment cache entry", logger.String("url", rawURL))
	default:
		c.observe(CacheMiss)
	}

	res := c.next.FetchMetadata(ctx, rawURL)
	if res == nil || res.Error != nil {
		return res
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return res
	}
	if err := c.cache.SetEnrichment(ctx, key, payload, c.ttl); err != nil {
		c.log.Warn("enrichment cache write failed", logger.String("url", rawURL), logger.Error(err))
	}
	return res
}

func (c *CachedEnricher) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveEnrichmentCache(result)
	}
}

// CacheKey is the hex sha256 of the trimmed URL.
func CacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(rawURL)))
	return hex.EncodeToString(sum[:])
}
