package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

type countingEnricher struct {
	calls int
	res   *Result
}

func (c *countingEnricher) FetchMetadata(_ context.Context, rawURL string) *Result {
	c.calls++
	cp := *c.res
	cp.ResolvedURL = rawURL
	return &cp
}

type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	readErr error
}

func (m *mapCache) GetEnrichment(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.data[key], nil
}

func (m *mapCache) SetEnrichment(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

type recordingObserver struct{ results []string }

func (r *recordingObserver) ObserveEnrichmentCache(result string) {
	r.results = append(r.results, result)
}

func TestCachedEnricher_CachesSuccess(t *testing.T) {
	title := "Cached"
	next := &countingEnricher{res: &Result{Title: &title}}
	obs := &recordingObserver{}
	c := NewCachedEnricher(next, &mapCache{data: map[string][]byte{}}, time.Hour, logger.Nop(), obs)

	first := c.FetchMetadata(context.Background(), "https://example.com")
	second := c.FetchMetadata(context.Background(), "https://example.com")

	if next.calls != 1 {
		t.Errorf("expected one upstream call, got %d", next.calls)
	}
	if deref(first.Title) != "Cached" || deref(second.Title) != "Cached" {
		t.Errorf("unexpected titles %q / %q", deref(first.Title), deref(second.Title))
	}
	if second.ResolvedURL != "https://example.com" {
		t.Errorf("ResolvedURL should survive the cache, got %q", second.ResolvedURL)
	}
	if len(obs.results) != 2 || obs.results[0] != CacheMiss || obs.results[1] != CacheHit {
		t.Errorf("unexpected cache observations %v", obs.results)
	}
}

func TestCachedEnricher_SkipsErrors(t *testing.T) {
	next := &countingEnricher{res: &Result{Error: &domain.EnrichmentError{Code: CodeTimeout, Message: "slow"}}}
	c := NewCachedEnricher(next, &mapCache{data: map[string][]byte{}}, time.Hour, logger.Nop(), nil)

	c.FetchMetadata(context.Background(), "https://example.com")
	c.FetchMetadata(context.Background(), "https://example.com")

	if next.calls != 2 {
		t.Errorf("failed results must not be cached, got %d upstream calls", next.calls)
	}
}

func TestCachedEnricher_CacheFailureFallsThrough(t *testing.T) {
	title := "Live"
	next := &countingEnricher{res: &Result{Title: &title}}
	c := NewCachedEnricher(next, &mapCache{data: map[string][]byte{}, readErr: errors.New("redis down")}, time.Hour, logger.Nop(), nil)

	res := c.FetchMetadata(context.Background(), "https://example.com")
	if deref(res.Title) != "Live" {
		t.Errorf("expected live result, got %q", deref(res.Title))
	}
}

func TestCacheKey(t *testing.T) {
	if CacheKey("https://a.com") != CacheKey("  https://a.com ") {
		t.Error("cache key should ignore surrounding whitespace")
	}
	if CacheKey("https://a.com") == CacheKey("https://b.com") {
		t.Error("different URLs must have different keys")
	}
	if len(CacheKey("x")) != 64 {
		t.Error("cache key should be a hex sha256")
	}
}
