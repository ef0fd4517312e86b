// Package cache implements an in-memory, concurrency-safe LRU cache with
// per-entry TTL, used to memoize translation results so the same source text
// is never sent upstream twice within its freshness window.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats is a snapshot of cache activity since construction.
type Stats struct {
	Size      int
	MaxSize   int
	Hits      int64
	Misses    int64
	Evictions int64
	Total     int64
	HitRate   float64
}

type entry struct {
	key       string
	value     string
	expiresAt time.Time
}

// LRU is a fixed-capacity, least-recently-used cache where every entry also
// carries its own expiry. A Get that finds an expired entry treats it as a
// miss and evicts it immediately rather than waiting for capacity pressure.
type LRU struct {
	mu        sync.Mutex
	maxSize   int
	ttl       time.Duration
	order     *list.List
	index     map[string]*list.Element
	hits      int64
	misses    int64
	evictions int64
}

// New creates an LRU cache holding at most maxSize entries, each valid for
// ttl after insertion. maxSize <= 0 defaults to 1000, ttl <= 0 defaults to
// one hour.
func New(maxSize int, ttl time.Duration) *LRU {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LRU{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		index:   make(map[string]*list.Element, maxSize),
	}
}

// Get returns the cached value for key, promoting it to most-recently-used.
func (c *LRU) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.misses++
		return "", false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.removeElement(el)
		c.misses++
		c.evictions++
		return "", false
	}

	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Set inserts or updates key, resetting its TTL and promoting it to
// most-recently-used. If the cache is at capacity, the least-recently-used
// entry is evicted first.
func (c *LRU) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)
	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		c.evictOldest()
	}

	el := c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	c.index[key] = el
}

// Clear removes every entry and resets the cache to empty, leaving the
// lifetime hit/miss/eviction counters untouched.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.index = make(map[string]*list.Element, c.maxSize)
}

// Stats returns a snapshot of the cache's current size and lifetime
// activity counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:      c.order.Len(),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Total:     total,
		HitRate:   hitRate,
	}
}

func (c *LRU) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeElement(oldest)
	c.evictions++
}

func (c *LRU) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.index, e.key)
}
