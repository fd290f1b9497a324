package recognition

import (
	"container/list"
	"encoding/hex"
	"sync"
	"time"
)

const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 100

	hashSample = 1024
	hashStride = 8
)

// Hash samples every 8th byte of the first KB and, for buffers over 2KB, of
// the last KB. It is a lookup key, not a digest: different buffers can share
// a hash and would then share a cached result.
func Hash(buf []byte) string {
	sample := hashSample
	if len(buf) < sample {
		sample = len(buf)
	}

	out := make([]byte, 0, 4*(sample/hashStride+1))
	for i := 0; i < sample; i += hashStride {
		out = hex.AppendEncode(out, buf[i:i+1])
	}
	if len(buf) > 2*hashSample {
		for i := len(buf) - sample; i < len(buf); i += hashStride {
			out = hex.AppendEncode(out, buf[i:i+1])
		}
	}
	return string(out)
}

type cacheEntry struct {
	hash     string
	result   Result
	storedAt time.Time
}

type CacheStats struct {
	Size   int       `json:"size"`
	Oldest time.Time `json:"oldest,omitempty"`
}

// Cache holds recognition results keyed by Hash of the encoded image.
// Eviction is by insertion order, reads do not refresh an entry.
type Cache struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

func NewCache(ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *Cache) Get(buf []byte) (Result, bool) {
	key := Hash(buf)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}

	entry := el.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.remove(el)
		return Result{}, false
	}
	return entry.result, true
}

func (c *Cache) Set(buf []byte, result Result) {
	key := Hash(buf)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()

	// A repeated key is re-inserted as the newest entry.
	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	if c.order.Len() >= c.maxSize {
		c.remove(c.order.Front())
	}

	result.Cached = false
	c.entries[key] = c.order.PushBack(&cacheEntry{
		hash:     key,
		result:   result,
		storedAt: c.now(),
	})
}

func (c *Cache) purgeExpired() {
	now := c.now()
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if now.Sub(el.Value.(*cacheEntry).storedAt) > c.ttl {
			c.remove(el)
		}
		el = next
	}
}

func (c *Cache) remove(el *list.Element) {
	entry := c.order.Remove(el).(*cacheEntry)
	delete(c.entries, entry.hash)
}

// Clear drops every entry and returns how many there were.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.order.Len()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	return n
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{Size: c.order.Len()}
	for el := c.order.Front(); el != nil; el = el.Next() {
		at := el.Value.(*cacheEntry).storedAt
		if stats.Oldest.IsZero() || at.Before(stats.Oldest) {
			stats.Oldest = at
		}
	}
	return stats
}
