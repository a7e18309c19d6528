// Package cache is the process-wide, time-bounded key/value store shared by the
// data fetchers. Entries expire lazily: an expired entry is only dropped when it
// is read. The store is capped; inserting a new key into a full store evicts the
// entry stored the longest time ago.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 200
)

type (
	entry struct {
		key      string
		value    interface{}
		storedAt time.Time
		element  *list.Element
	}

	// Stats is a snapshot of the cache counters.
	Stats struct {
		Hits      int64 `json:"hits"`
		Misses    int64 `json:"misses"`
		Evictions int64 `json:"evictions"`
		Entries   int   `json:"entries"`
	}

	Option func(*Cache)

	Cache struct {
		mu         sync.Mutex
		entries    map[string]*entry
		order      *list.List // front: newest storedAt
		ttl        time.Duration
		maxEntries int
		now        func() time.Time
		stats      Stats
	}
)

// WithTTL overrides the default expiration window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries overrides the entry cap.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]*entry),
		order:      list.New(),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the default expiration window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the value stored under key if it is younger than ttl (the default TTL when omitted).
func (c *Cache) Get(key string, ttl ...time.Duration) (interface{}, bool) {
	window := c.ttl
	if len(ttl) > 0 && ttl[0] > 0 {
		window = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= window {
		c.remove(e)
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.value, true
}

// Set overwrites the entry for key, stamping it with the current time.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.storedAt = now
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.entries) >= c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry))
		c.stats.Evictions++
	}

	e := &entry{key: key, value: value, storedAt: now}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

// Clear removes the given keys, or everything when called without keys.
func (c *Cache) Clear(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(keys) == 0 {
		c.entries = make(map[string]*entry)
		c.order.Init()
		return
	}
	for _, key := range keys {
		if e, ok := c.entries[key]; ok {
			c.remove(e)
		}
	}
}

// ClearPrefix removes every key starting with prefix and returns how many were dropped.
func (c *Cache) ClearPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toDelete []*entry
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			toDelete = append(toDelete, e)
		}
	}
	for _, e := range toDelete {
		c.remove(e)
	}
	return len(toDelete)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// remove must be called with c.mu held.
func (c *Cache) remove(e *entry) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}

// Key derives a deterministic cache key from prefix and every effective query parameter.
// Maps are encoded with sorted keys, so equal parameter sets always give the same key.
func Key(prefix string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", params))
	}
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:])[:16]
}
