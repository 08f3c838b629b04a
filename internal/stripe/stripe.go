// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package stripe provides the per-slot reader/writer locks guarding the
// bucket directory.  One Set is a lock generation: a directory resize
// installs a fresh Set sized to the new slot count rather than migrating
// locks, and operations that raced the swap re-check and retry under the
// new generation.
package stripe

import "sync"

// Set holds one RWMutex per directory slot.  Its length doubles as the
// authoritative bucket count for the generation.
type Set struct {
	locks []sync.RWMutex
}

// NewSet allocates a lock per slot for a directory of n slots.
func NewSet(n int) *Set {
	return &Set{locks: make([]sync.RWMutex, n)}
}

// Len returns the number of slots this generation covers.
func (s *Set) Len() int {
	return len(s.locks)
}

// Slot returns the lock guarding slot i.
func (s *Set) Slot(i int) *sync.RWMutex {
	return &s.locks[i]
}

// LockAll acquires every slot's write lock in ascending index order.  The
// fixed order is what keeps store-wide barriers (compaction, resize, close)
// from deadlocking against each other.
func (s *Set) LockAll() {
	for i := range s.locks {
		s.locks[i].Lock()
	}
}

// UnlockAll releases every slot's write lock.  Only valid after LockAll.
func (s *Set) UnlockAll() {
	for i := range s.locks {
		s.locks[i].Unlock()
	}
}
