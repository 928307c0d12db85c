// SPDX-License-Identifier: MIT

// Package cache holds prefetched media segments keyed by resource URL.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache stores byte segments with expiration. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get returns the segment for key, or false if absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string)
	// Stats returns cache statistics.
	Stats() Stats
	// Close releases background resources.
	Close() error
}

// Stats holds cache counters.
type Stats struct {
	Hits      int64 // successful Get operations
	Misses    int64 // Get on missing or expired keys
	Sets      int64
	Evictions int64 // entries dropped by expiry or the byte budget
	Entries   int
	Bytes     int64
}

type entry struct {
	key        string
	value      []byte
	expiration time.Time
	elem       *list.Element
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiration)
}

// memoryCache is an LRU bounded by total bytes.
type memoryCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	lru      *list.List // front is most recently used
	maxBytes int64
	bytes    int64
	stats    Stats
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// MemoryOption configures the in-memory cache.
type MemoryOption func(*memoryCache)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryCache) { c.now = now }
}

// NewMemoryCache returns an in-memory cache holding at most maxBytes of
// segment data (0 means unbounded). A positive cleanupInterval starts a
// janitor goroutine that drops expired entries; Close stops it.
func NewMemoryCache(maxBytes int64, cleanupInterval time.Duration, opts ...MemoryOption) Cache {
	c := &memoryCache{
		entries:  make(map[string]*entry),
		lru:      list.New(),
		maxBytes: maxBytes,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if cleanupInterval > 0 {
		c.wg.Add(1)
		go c.janitor(cleanupInterval)
	}
	return c
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(c.now()) {
		c.stats.Misses++
		return nil, false
	}
	c.lru.MoveToFront(e.elem)
	c.stats.Hits++
	return e.value, true
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}
	if c.maxBytes > 0 && int64(len(value)) > c.maxBytes {
		return
	}
	e := &entry{key: key, value: value, expiration: c.now().Add(ttl)}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e
	c.bytes += int64(len(value))
	c.stats.Sets++

	for c.maxBytes > 0 && c.bytes > c.maxBytes {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry))
		c.stats.Evictions++
	}
}

func (c *memoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

func (c *memoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	s.Bytes = c.bytes
	return s
}

func (c *memoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
	return nil
}

func (c *memoryCache) removeLocked(e *entry) {
	c.lru.Remove(e.elem)
	delete(c.entries, e.key)
	c.bytes -= int64(len(e.value))
}

// deleteExpired drops expired entries and returns how many were removed.
func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for _, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(e)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

func (c *memoryCache) janitor(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

// noOpCache disables caching.
type noOpCache struct{}

// NewNoOpCache returns a cache that stores nothing.
func NewNoOpCache() Cache { return noOpCache{} }

func (noOpCache) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (noOpCache) Set(context.Context, string, []byte, time.Duration) {}
func (noOpCache) Delete(context.Context, string)                     {}
func (noOpCache) Stats() Stats                                       { return Stats{} }
func (noOpCache) Close() error                                       { return nil }
