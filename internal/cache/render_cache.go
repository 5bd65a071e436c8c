package cache

import (
	"time"

	"github.com/smartinvoice/smartinvoice/internal/config"
)

// RenderCache holds rendered invoice PDFs keyed by invoice id plus its
// updated-at stamp, so an edit naturally invalidates the cached bytes.
type RenderCache struct {
	store Cache[string, []byte]
	ttl   time.Duration
}

func NewRenderCache(cfg *config.Config) *RenderCache {
	ttl := cfg.RenderCacheTTL
	if ttl <= 0 {
		return &RenderCache{store: NoopCache[string, []byte]{}}
	}
	return &RenderCache{store: NewTTLCache[string, []byte](), ttl: ttl}
}

func (c *RenderCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.store.Get(key)
}

func (c *RenderCache) Set(key string, pdf []byte) {
	if c == nil || c.ttl <= 0 {
		return
	}
	// Copy so later mutation of the caller's slice cannot poison the cache.
	stored := make([]byte, len(pdf))
	copy(stored, pdf)
	c.store.Set(key, stored, c.ttl)
}

func (c *RenderCache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.store.Delete(key)
}
