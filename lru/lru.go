// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package lru provides a fixed-capacity cache that evicts the least
// recently used entry when it grows past its capacity.  It is a standalone
// utility: the storage engine itself reads through to disk and does not
// depend on it.
package lru

import "container/list"

// Cache is an access-ordered map holding at most its capacity in entries.
// Both Get and Set refresh an entry's recency.  Cache is not safe for
// concurrent use; callers that share one across goroutines wrap it in
// their own lock.
type Cache[K comparable, V any] struct {
	capacity int
	order    *list.List // front is most recently used
	items    map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New returns an empty Cache that holds at most capacity entries.  It
// panics if capacity is not positive.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		panic("lru: capacity must be positive")
	}
	return &Cache[K, V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[K]*list.Element, capacity),
	}
}

// Get returns the value stored under key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Set stores value under key and marks it most recently used.  When the
// cache is full and key is new, the least recently used entry is dropped.
func (c *Cache[K, V]) Set(key K, value V) {
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[K, V]).key)
	}
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	return c.order.Len()
}
