package compress

import (
	"context"
	"sync"
	"time"

	"itemcam/internal/logger"
)

// ConfigSource is where the operator-managed presets live.
type ConfigSource interface {
	GetCompressionConfig(ctx context.Context) (Config, error)
}

// ConfigCache keeps the last fetched config for ttl. Failed or invalid
// fetches yield DefaultConfig and are not cached, so the next capture retries.
type ConfigCache struct {
	source ConfigSource
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger

	mu        sync.Mutex
	cached    *Config
	fetchedAt time.Time
}

func NewConfigCache(source ConfigSource, ttl time.Duration, logger *logger.Logger) *ConfigCache {
	return &ConfigCache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func (c *ConfigCache) Get(ctx context.Context) Config {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return *c.cached
	}

	cfg, err := c.source.GetCompressionConfig(ctx)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		c.logger.Warning("🗜️  Compression config unavailable, using defaults: %v", err)
		return DefaultConfig()
	}

	c.cached = &cfg
	c.fetchedAt = c.now()
	return cfg
}

// Invalidate drops the cached config, typically after it was updated.
func (c *ConfigCache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
