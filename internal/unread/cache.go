package unread

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"traffichub/internal/domain"
	"traffichub/internal/metrics"
)

// version identifies one generation of a scope's aggregates. An entry is
// fresh only while its version equals the scope's current version.
type version struct {
	epoch uint64
	kind  uint64
	scope uint64
}

type entry[V any] struct {
	ver version
	val V
}

// Cache holds aggregates keyed by scope and filter. Invalidation only marks
// values stale; they are recomputed by the next Get. Concurrent misses of one
// key and version share a single load.
type Cache[V any] struct {
	name string

	mu    sync.Mutex
	clock uint64
	epoch uint64
	kinds map[domain.ScopeKind]uint64
	// scopes only holds scopes with cached values or loads in flight, so a
	// pruned scope restarts at version 0. A finished load leaves the
	// singleflight group before the lock is released, so no caller can join
	// a load of a recycled version.
	scopes  map[domain.Scope]uint64
	loading map[domain.Scope]int
	entries map[domain.Scope]map[domain.Filter]entry[V]

	group singleflight.Group
}

func NewCache[V any](name string) *Cache[V] {
	return &Cache[V]{
		name:    name,
		kinds:   make(map[domain.ScopeKind]uint64),
		scopes:  make(map[domain.Scope]uint64),
		loading: make(map[domain.Scope]int),
		entries: make(map[domain.Scope]map[domain.Filter]entry[V]),
	}
}

func (c *Cache[V]) versionLocked(s domain.Scope) version {
	return version{epoch: c.epoch, kind: c.kinds[s.Kind], scope: c.scopes[s]}
}

// Get returns the cached value for (s, f), loading it when missing or stale.
// A load that finishes after s was invalidated is returned to the callers
// that started it but never stored.
func (c *Cache[V]) Get(ctx context.Context, s domain.Scope, f domain.Filter, load func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	ver := c.versionLocked(s)
	if e, ok := c.entries[s][f]; ok && e.ver == ver {
		c.mu.Unlock()
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return e.val, nil
	}
	c.mu.Unlock()
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	// The version is part of the key so callers arriving after an
	// invalidation never join a load that started before it.
	key := fmt.Sprintf("%s|%s|%+v|%d.%d.%d", c.name, s, f, ver.epoch, ver.kind, ver.scope)
	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.Lock()
		c.loading[s]++
		c.mu.Unlock()

		v, err := load(context.WithoutCancel(ctx))

		c.mu.Lock()
		defer c.mu.Unlock()
		c.group.Forget(key)
		if c.loading[s]--; c.loading[s] == 0 {
			delete(c.loading, s)
		}
		if err != nil {
			c.pruneLocked(s)
			return v, err
		}
		if c.versionLocked(s) == ver {
			byFilter := c.entries[s]
			if byFilter == nil {
				byFilter = make(map[domain.Filter]entry[V])
				c.entries[s] = byFilter
			}
			byFilter[f] = entry[V]{ver: ver, val: v}
		}
		c.pruneLocked(s)
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Invalidate marks every aggregate of the given scopes stale. Invalidating a
// scope that is already stale has no further effect on readers.
func (c *Cache[V]) Invalidate(scopes ...domain.Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range scopes {
		c.clock++
		c.scopes[s] = c.clock
		delete(c.entries, s)
		c.pruneLocked(s)
	}
}

// pruneLocked forgets the version of a scope with nothing cached and nothing
// loading.
func (c *Cache[V]) pruneLocked(s domain.Scope) {
	if c.loading[s] == 0 && len(c.entries[s]) == 0 {
		delete(c.scopes, s)
	}
}

// InvalidateKind marks every aggregate of one scope kind stale.
func (c *Cache[V]) InvalidateKind(kind domain.ScopeKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	c.kinds[kind] = c.clock
	for s := range c.entries {
		if s.Kind == kind {
			delete(c.entries, s)
		}
	}
}

// Reset drops everything.
func (c *Cache[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	clear(c.kinds)
	clear(c.scopes)
	clear(c.entries)
}

// Len reports the number of cached values, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, byFilter := range c.entries {
		n += len(byFilter)
	}
	return n
}
