// Package entitycache is a bounded store of entities that expire when not refreshed.
package entitycache

import (
	"sort"
	"sync"
	"time"

	"github.com/slim-bean/airdash/pkg/model"
)

type entry struct {
	entity  model.Entity
	updated time.Time
}

// Cache expires entries lazily on access, Sweep removes every expired entry at once.
// When full, inserting a new key evicts the least recently updated entry.
type Cache struct {
	mtx           sync.Mutex
	entries       map[model.Key]*entry
	maxAge        map[model.EntityType]time.Duration
	defaultMaxAge time.Duration
	maxEntries    int
	now           func() time.Time
}

type Option func(*Cache)

// WithMaxAge sets the max age of one entity type.
func WithMaxAge(t model.EntityType, d time.Duration) Option {
	return func(c *Cache) {
		c.maxAge[t] = d
	}
}

// WithMaxEntries bounds the cache, 0 means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(defaultMaxAge time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries:       map[model.Key]*entry{},
		maxAge:        map[model.EntityType]time.Duration{},
		defaultMaxAge: defaultMaxAge,
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) ttl(t model.EntityType) time.Duration {
	if d, ok := c.maxAge[t]; ok {
		return d
	}
	return c.defaultMaxAge
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.updated) > c.ttl(e.entity.Type)
}

// getLocked returns the live entry for k, removing it if it expired.
func (c *Cache) getLocked(k model.Key, now time.Time) (*entry, bool) {
	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if c.expired(e, now) {
		delete(c.entries, k)
		return nil, false
	}
	return e, true
}

func (c *Cache) Get(k model.Key) (model.Entity, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	e, ok := c.getLocked(k, c.now())
	if !ok {
		return model.Entity{}, false
	}
	return e.entity.Clone(), true
}

// Update runs fn with the current entity for k, if any, and stores what it returns
// unless fn reports false. The whole read-modify-write holds the cache lock, fn must
// not call back into the cache.
func (c *Cache) Update(k model.Key, fn func(existing model.Entity, found bool) (model.Entity, bool)) (model.Entity, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	now := c.now()
	var existing model.Entity
	e, found := c.getLocked(k, now)
	if found {
		existing = e.entity
	}
	next, store := fn(existing, found)
	if !store {
		return model.Entity{}, false
	}
	if !found {
		c.makeRoomLocked(now)
		e = &entry{}
		c.entries[k] = e
	}
	e.entity = next
	e.updated = now
	return next.Clone(), true
}

func (c *Cache) makeRoomLocked(now time.Time) {
	if c.maxEntries <= 0 || len(c.entries) < c.maxEntries {
		return
	}
	c.sweepLocked(now)
	for len(c.entries) >= c.maxEntries {
		var oldestKey model.Key
		var oldest *entry
		for k, e := range c.entries {
			if oldest == nil || e.updated.Before(oldest.updated) {
				oldestKey, oldest = k, e
			}
		}
		delete(c.entries, oldestKey)
	}
}

func (c *Cache) Delete(k model.Key) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	_, ok := c.entries[k]
	delete(c.entries, k)
	return ok
}

// Snapshot returns copies of all live entities ordered by type then id.
func (c *Cache) Snapshot() []model.Entity {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.sweepLocked(c.now())
	out := make([]model.Entity, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.entity.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Sweep removes expired entities and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.sweepLocked(c.now())
}

func (c *Cache) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Counts returns the number of live entities per type.
func (c *Cache) Counts() map[model.EntityType]int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	now := c.now()
	counts := map[model.EntityType]int{}
	for _, e := range c.entries {
		if !c.expired(e, now) {
			counts[e.entity.Type]++
		}
	}
	return counts
}

func (c *Cache) Len() int {
	n := 0
	for _, v := range c.Counts() {
		n += v
	}
	return n
}
