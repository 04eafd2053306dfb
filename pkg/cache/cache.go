// Package cache implements the bounded concurrent cache (C1): an
// access-order LRU map with single-flight compute-if-absent and weakly
// consistent hit/miss statistics, as specified in §4.1.
//
// The single-flight producer serialization is built on
// golang.org/x/sync/singleflight, the same "one caller computes, everyone
// else waits" primitive the broader pack reaches for around expensive,
// heavily-shared computations. singleflight alone has no notion of
// eviction or of a distinguished null value, so this package wraps it with
// its own access-ordered map and null sentinel rather than replacing it.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"dicore/pkg/dierr"
)

// nullSentinel is the process-wide marker distinguishing "present with a
// legal nil/zero value" from "absent" (§3, CacheEntry invariant).
type nullSentinel struct{}

var null = nullSentinel{}

// wrap/unwrap translate between the caller's V and the internal storage
// representation, since nil itself is a valid V for reference-typed V and
// must not collide with "absent".
func wrap(v interface{}) interface{} {
	if v == nil {
		return null
	}
	return v
}

func unwrap(v interface{}) interface{} {
	if _, ok := v.(nullSentinel); ok {
		return nil
	}
	return v
}

type entry struct {
	key     interface{}
	value   interface{} // wrapped
	element *list.Element
}

// Cache is a bounded, concurrent, LRU memoization map.
type Cache struct {
	mu         sync.RWMutex
	entries    map[interface{}]*entry
	order      *list.List // front = most recently used
	maxSize    int
	group      singleflight.Group
	hits       atomic.Int64
	misses     atomic.Int64
}

// Params configures a Cache. All three must be positive, and LoadFactor
// must lie in (0, 1); violations fail with a DomainFailure (§4.1).
type Params struct {
	MaxSize         int
	InitialCapacity int
	LoadFactor      float64
}

// New constructs a Cache per the given Params.
func New(p Params) (*Cache, error) {
	if p.MaxSize <= 0 {
		return nil, dierr.New(dierr.DomainFailure, "cache max size must be > 0, got %d", p.MaxSize)
	}
	if p.InitialCapacity <= 0 {
		return nil, dierr.New(dierr.DomainFailure, "cache initial capacity must be > 0, got %d", p.InitialCapacity)
	}
	if p.LoadFactor <= 0 || p.LoadFactor >= 1 {
		return nil, dierr.New(dierr.DomainFailure, "cache load factor must be in (0,1), got %v", p.LoadFactor)
	}
	return &Cache{
		entries: make(map[interface{}]*entry, p.InitialCapacity),
		order:   list.New(),
		maxSize: p.MaxSize,
	}, nil
}

// Producer is an idempotent, zero-argument closure computing a value for a
// missing key. Exceptions (errors) propagate unchanged to the caller; the
// miss counter is still incremented once, and nothing is stored (§4.1
// Failure semantics).
type Producer func() (interface{}, error)

// ComputeIfAbsent returns the cached value for key, computing it via
// producer on a miss. Concurrent callers for the same key block on a
// single in-flight computation; producer runs at most once per key even
// under contention.
func (c *Cache) ComputeIfAbsent(key interface{}, producer Producer) (interface{}, error) {
	// Fast path: lock-free-ish read under RLock, no compute lock touched.
	c.mu.RLock()
	if e, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		c.mu.Lock()
		c.order.MoveToFront(e.element)
		c.mu.Unlock()
		c.hits.Add(1)
		return unwrap(e.value), nil
	}
	c.mu.RUnlock()

	// Miss path: single-flight per key so concurrent misses for the same
	// key invoke producer exactly once.
	v, err, _ := c.group.Do(cacheKeyString(key), func() (interface{}, error) {
		// Double-check: another caller may have just populated this key
		// while we were queued behind the singleflight group.
		c.mu.RLock()
		if e, ok := c.entries[key]; ok {
			c.mu.RUnlock()
			return e.value, nil
		}
		c.mu.RUnlock()

		produced, perr := producer()
		if perr != nil {
			return nil, perr
		}
		c.insert(key, wrap(produced))
		return wrap(produced), nil
	})
	if err != nil {
		c.misses.Add(1)
		return nil, err
	}
	c.misses.Add(1)
	return unwrap(v), nil
}

func (c *Cache) insert(key, wrapped interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = wrapped
		c.order.MoveToFront(e.element)
		return
	}

	el := c.order.PushFront(key)
	c.entries[key] = &entry{key: key, value: wrapped, element: el}

	// Eviction rule: size > max_size *after* insertion, so the structure
	// may transiently hold max_size+1 entries during insertion (§4.1).
	if len(c.entries) > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value)
		}
	}
}

// Invalidate removes key if present; statistics are preserved.
func (c *Cache) Invalidate(key interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.order.Remove(e.element)
		delete(c.entries, key)
	}
}

// InvalidateAll removes every entry whose key satisfies predicate.
func (c *Cache) InvalidateAll(predicate func(key interface{}) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if predicate(k) {
			c.order.Remove(e.element)
			delete(c.entries, k)
		}
	}
}

// Clear empties all entries. Statistics are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[interface{}]*entry, len(c.entries))
	c.order.Init()
}

// Size returns the current entry count.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// HitCount returns the monotonic hit counter. Reads of hits/misses need not
// be simultaneous (§4.1: weakly consistent snapshot).
func (c *Cache) HitCount() int64 { return c.hits.Load() }

// MissCount returns the monotonic miss counter.
func (c *Cache) MissCount() int64 { return c.misses.Load() }

// HitRate returns hits/(hits+misses), or 0 when both are zero.
func (c *Cache) HitRate() float64 {
	h, m := c.hits.Load(), c.misses.Load()
	total := h + m
	if total == 0 {
		return 0
	}
	return float64(h) / float64(total)
}

// cacheKeyString renders a map key into a singleflight group key. Most
// callers in this module key caches on typedesc.TypeDescriptor/MappingKey,
// which already expose a canonical Key() string via the keyer interface;
// anything else falls back to fmt's %#v (fmtKey), which is sufficient for the
// comparable key types this package's callers use (strings, small structs).
func cacheKeyString(key interface{}) string {
	if k, ok := key.(keyer); ok {
		return k.Key()
	}
	return fmtKey(key)
}

type keyer interface{ Key() string }
