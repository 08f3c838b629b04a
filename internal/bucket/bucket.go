// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package bucket maps keys to directory slots and tracks slot occupancy for
// load-factor decisions.
package bucket

import (
	"sync/atomic"

	"github.com/dgryski/go-farm"

	"github.com/pailkv/pail/internal/unsafestring"
)

// Indexer assigns keys to bucket slots and owns the used-slot counter that
// drives grow and shrink decisions.  Slot assignment is a pure function of
// the key bytes and the slot count: farm.Hash64 is unseeded and stable
// across process runs, which reopening a persisted directory depends on.
type Indexer struct {
	baseline int     // slot count the store was created with; the shrink floor
	upper    float64 // grow once used/n exceeds this
	lower    float64 // shrink once used/n falls below this, if n > baseline
	used     atomic.Int64
}

// NewIndexer returns an Indexer with the given baseline slot count and load
// thresholds.
func NewIndexer(baseline int, upper, lower float64) *Indexer {
	return &Indexer{baseline: baseline, upper: upper, lower: lower}
}

// SlotFor returns the slot index for key in a directory of n slots.
func (ix *Indexer) SlotFor(key string, n int) int {
	return ix.SlotForBytes(unsafestring.ToBytes(key), n)
}

// SlotForBytes is SlotFor for callers that already hold the key as bytes,
// such as the resize rehash loop.
func (ix *Indexer) SlotForBytes(key []byte, n int) int {
	return int(farm.Hash64(key) % uint64(n))
}

// Used returns the current used-slot count.
func (ix *Indexer) Used() int64 {
	return ix.used.Load()
}

// MarkUsed records an empty slot becoming live.
func (ix *Indexer) MarkUsed() {
	ix.used.Add(1)
}

// MarkFree records a live slot becoming empty.
func (ix *Indexer) MarkFree() {
	ix.used.Add(-1)
}

// SetUsed overwrites the counter after a resize or an open-time recount.
func (ix *Indexer) SetUsed(n int64) {
	ix.used.Store(n)
}

// Baseline returns the configured minimum slot count.
func (ix *Indexer) Baseline() int {
	return ix.baseline
}

// ShouldResize reports whether the load factor of a directory of n slots
// warrants resizing.  Shrinking never takes the directory below baseline.
func (ix *Indexer) ShouldResize(n int) bool {
	_, ok := ix.Target(n)
	return ok
}

// Target returns the slot count a resize of an n-slot directory should aim
// for, or false when the load factor does not warrant one.  Growth doubles
// the directory; shrinking halves it, floored at baseline.
func (ix *Indexer) Target(n int) (int, bool) {
	load := float64(ix.used.Load()) / float64(n)
	switch {
	case load > ix.upper:
		return n * 2, true
	case load < ix.lower && n > ix.baseline:
		half := n / 2
		if half < ix.baseline {
			half = ix.baseline
		}
		return half, true
	default:
		return 0, false
	}
}
