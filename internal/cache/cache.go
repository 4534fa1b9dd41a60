// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package cache

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/saveearthride/internal/metrics"
)

const (
	// DefaultTTL is how long a stored response is served without a backend read.
	DefaultTTL = 30 * time.Second

	// DefaultMaxEntries bounds the number of cached responses.
	DefaultMaxEntries = 100
)

// Config holds response cache settings.
type Config struct {
	TTL        time.Duration
	MaxEntries int
}

// DefaultConfig returns the production cache settings.
func DefaultConfig() Config {
	return Config{TTL: DefaultTTL, MaxEntries: DefaultMaxEntries}
}

// Entry is a cached response.
type Entry struct {
	Key         string
	Payload     []byte
	StoredAt    time.Time
	Fingerprint string
	HitCount    int64
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Entries       int       `json:"entries"`
	MaxEntries    int       `json:"maxEntries"`
	TTLSeconds    float64   `json:"ttlSeconds"`
	Hits          int64     `json:"hits"`
	Misses        int64     `json:"misses"`
	Evictions     int64     `json:"evictions"`
	Invalidations int64     `json:"invalidations"`
	HitRate       float64   `json:"hitRate"`
	LastSweep     time.Time `json:"lastSweep"`
}

// ResponseCache is a TTL and size bounded cache of serialized responses.
type ResponseCache struct {
	mu    sync.Mutex
	cfg   Config
	items map[string]*node
	order storeList
	now   func() time.Time

	// generation increments on InvalidateAll; loads from an older generation are discarded.
	generation uint64
	loads      singleflight.Group

	hits          int64
	misses        int64
	evictions     int64
	invalidations int64
	lastSweep     time.Time
}

// New creates a response cache. Zero or negative settings fall back to defaults.
func New(cfg Config) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &ResponseCache{
		cfg:   cfg,
		items: make(map[string]*node, cfg.MaxEntries),
		order: newStoreList(),
		now:   time.Now,
	}
}

// Key builds the cache key for a request.
//
//	cache.Key("GET", "/api/drives?status=upcoming") // "GET:/api/drives?status=upcoming"
func Key(method, url string) string {
	return method + ":" + url
}

// TTL returns the configured time-to-live.
func (c *ResponseCache) TTL() time.Duration {
	return c.cfg.TTL
}

// Get returns a copy of the entry for key if it is still fresh.
// A stale entry is removed and reported as a miss.
func (c *ResponseCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *ResponseCache) getLocked(key string) (Entry, bool) {
	n, ok := c.items[key]
	if !ok {
		c.misses++
		metrics.ResponseCacheMisses.Inc()
		return Entry{}, false
	}

	if c.now().Sub(n.entry.StoredAt) > c.cfg.TTL {
		c.removeLocked(n)
		c.evictions++
		c.misses++
		metrics.ResponseCacheEvictions.WithLabelValues("expired").Inc()
		metrics.ResponseCacheMisses.Inc()
		return Entry{}, false
	}

	n.entry.HitCount++
	c.hits++
	metrics.ResponseCacheHits.Inc()
	return n.entry, true
}

// Set stores payload under key, evicting the oldest entry first when full.
// The stored entry is returned with its fingerprint.
func (c *ResponseCache) Set(key string, payload []byte) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(key, payload)
}

func (c *ResponseCache) setLocked(key string, payload []byte) Entry {
	entry := Entry{
		Key:         key,
		Payload:     payload,
		StoredAt:    c.now(),
		Fingerprint: Fingerprint(payload),
	}

	if n, ok := c.items[key]; ok {
		n.entry = entry
		c.order.moveToFront(n)
		return entry
	}

	for len(c.items) >= c.cfg.MaxEntries {
		oldest := c.order.oldest()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		c.evictions++
		metrics.ResponseCacheEvictions.WithLabelValues("capacity").Inc()
	}

	n := &node{entry: entry}
	c.order.pushFront(n)
	c.items[key] = n
	metrics.ResponseCacheEntries.Set(float64(len(c.items)))
	return entry
}

// GetOrLoad returns the fresh entry for key, or runs load once for all
// concurrent callers and caches its result. hit reports whether the entry
// came from the cache. Load errors are returned and nothing is cached.
func (c *ResponseCache) GetOrLoad(key string, load func() ([]byte, error)) (entry Entry, hit bool, err error) {
	c.mu.Lock()
	if e, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		return e, true, nil
	}
	gen := c.generation
	c.mu.Unlock()

	flightKey := strconv.FormatUint(gen, 10) + "|" + key
	v, err, _ := c.loads.Do(flightKey, func() (interface{}, error) {
		payload, err := load()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen {
			// Invalidated while loading: serve the result but do not cache it.
			return Entry{Key: key, Payload: payload, StoredAt: c.now(), Fingerprint: Fingerprint(payload)}, nil
		}
		return c.setLocked(key, payload), nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	return v.(Entry), false, nil
}

// Delete removes one key. It reports whether the key was present.
func (c *ResponseCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeLocked(n)
	return true
}

// InvalidateAll clears every entry and returns how many were dropped.
func (c *ResponseCache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := len(c.items)
	c.items = make(map[string]*node, c.cfg.MaxEntries)
	c.order.reset()
	c.generation++
	c.invalidations++

	metrics.ResponseCacheEvictions.WithLabelValues("invalidated").Add(float64(dropped))
	metrics.ResponseCacheEntries.Set(0)
	return dropped
}

// Sweep removes every expired entry and returns the number removed.
func (c *ResponseCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	// The list is ordered by StoredAt, so walk from the oldest until a fresh entry.
	for n := c.order.oldest(); n != nil; n = c.order.oldest() {
		if now.Sub(n.entry.StoredAt) <= c.cfg.TTL {
			break
		}
		c.removeLocked(n)
		removed++
	}

	c.evictions += int64(removed)
	c.lastSweep = now
	metrics.ResponseCacheEvictions.WithLabelValues("expired").Add(float64(removed))
	return removed
}

// Len returns the number of stored entries, fresh or not yet swept.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Hits returns the global hit counter.
func (c *ResponseCache) Hits() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// Stats returns a snapshot of the cache counters.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entries:       len(c.items),
		MaxEntries:    c.cfg.MaxEntries,
		TTLSeconds:    c.cfg.TTL.Seconds(),
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Invalidations: c.invalidations,
		LastSweep:     c.lastSweep,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total) * 100.0
	}
	return s
}

// removeLocked unlinks n and deletes it from the index (must hold c.mu).
func (c *ResponseCache) removeLocked(n *node) {
	c.order.unlink(n)
	delete(c.items, n.entry.Key)
	metrics.ResponseCacheEntries.Set(float64(len(c.items)))
}
