package roster

import (
	"context"
	"time"

	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedSource wraps a Source with an expiring cache. Failed fetches are not
// cached, so the next call retries the underlying source.
type CachedSource struct {
	inner   Source
	cache   *expirable.LRU[string, []byte]
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around src whose entries expire
// after ttl.
func NewCachedSource(src Source, ttl time.Duration, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   src,
		cache:   expirable.NewLRU[string, []byte](8, nil, ttl),
		metrics: metrics,
	}
}

func (c *CachedSource) Name() string { return c.inner.Name() }

func (c *CachedSource) Fetch(ctx context.Context) ([]byte, error) {
	key := c.inner.Name()
	if data, ok := c.cache.Get(key); ok {
		c.metrics.BlobCache.WithLabelValues("hit").Inc()
		return data, nil
	}
	c.metrics.BlobCache.WithLabelValues("miss").Inc()

	data, err := c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, data)
	return data, nil
}

// Purge drops every cached payload.
func (c *CachedSource) Purge() {
	c.cache.Purge()
}
