// Package cache implements the bounded LRU of active server bindings.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/fentz26/toolrouter/internal/toolapi"
	"github.com/fentz26/toolrouter/internal/transport"
)

// Cache is a bounded, ordered mapping from handle to active binding with
// LRU replacement. All operations are mutually exclusive under a single
// writer lock; connection release always happens after that lock is
// released (stage the doomed binding, release the lock, then close).
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache

	// staged captures the binding evicted by the most recent call into the
	// underlying LRU, so the caller can close it after releasing mu. Only
	// ever read/written while mu is held.
	staged transport.Binding
}

// New constructs a Cache with capacity size (must be >= 1).
func New(size int) (*Cache, error) {
	c := &Cache{}
	backing, err := lru.NewWithEvict(size, c.onEvicted)
	if err != nil {
		return nil, err
	}
	c.lru = backing
	return c, nil
}

// onEvicted is invoked synchronously by the underlying LRU while its own
// internal lock is held. It must not block or close anything; it only
// stages the evicted value for the caller to release afterward.
func (c *Cache) onEvicted(_ interface{}, value interface{}) {
	c.staged = value.(transport.Binding)
}

// Get returns the binding for h, moving it to MRU, if present.
func (c *Cache) Get(h toolapi.Handle) (transport.Binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(h)
	if !ok {
		return nil, false
	}
	return v.(transport.Binding), true
}

// Insert installs binding at h, marking it MRU. If h was already present,
// the old binding is released. If inserting would exceed capacity, the LRU
// entry is released first. Either way, release happens only after mu is
// released.
func (c *Cache) Insert(h toolapi.Handle, binding transport.Binding) {
	var toClose []transport.Binding

	c.mu.Lock()
	c.staged = nil
	if old, ok := c.lru.Peek(h); ok {
		toClose = append(toClose, old.(transport.Binding))
	}
	c.lru.Add(h, binding)
	if c.staged != nil {
		toClose = append(toClose, c.staged)
		c.staged = nil
	}
	c.mu.Unlock()

	for _, b := range toClose {
		_ = b.Close()
	}
}

// Touch moves h to MRU if present; otherwise it is a no-op.
func (c *Cache) Touch(h toolapi.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Get(h) // Get already promotes to MRU as a side effect.
}

// Evict removes h if present, releasing its connection, and reports whether
// anything was removed.
func (c *Cache) Evict(h toolapi.Handle) bool {
	var toClose transport.Binding

	c.mu.Lock()
	v, ok := c.lru.Peek(h)
	if ok {
		toClose = v.(transport.Binding)
		c.lru.Remove(h)
	}
	c.mu.Unlock()

	if toClose != nil {
		_ = toClose.Close()
	}
	return ok
}

// Contents returns every cached handle, MRU first.
func (c *Cache) Contents() []toolapi.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.lru.Keys() // LRU first from the library; reverse for MRU first.
	out := make([]toolapi.Handle, len(keys))
	for i, k := range keys {
		out[len(keys)-1-i] = k.(toolapi.Handle)
	}
	return out
}

// ReleaseAll closes every cached connection and clears the cache.
func (c *Cache) ReleaseAll() {
	c.mu.Lock()
	keys := c.lru.Keys()
	var toClose []transport.Binding
	for _, k := range keys {
		if v, ok := c.lru.Peek(k); ok {
			toClose = append(toClose, v.(transport.Binding))
		}
	}
	c.lru.Purge()
	c.mu.Unlock()

	for _, b := range toClose {
		_ = b.Close()
	}
}
