// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pail

import "sync/atomic"

type counters struct {
	puts        atomic.Uint64
	gets        atomic.Uint64
	deletes     atomic.Uint64
	misses      atomic.Uint64
	compactions atomic.Uint64
	resizes     atomic.Uint64
}

// Stats is a point-in-time snapshot of store shape and operation counts.
type Stats struct {
	BucketCount      int     // current directory slots
	UsedSlots        int64   // slots holding a live pointer
	LoadFactor       float64 // UsedSlots over BucketCount
	LogBytes         int64   // data log length, orphaned bytes included
	PendingDeletions int64   // deletes since the last threshold compaction

	Puts        uint64
	Gets        uint64
	Deletes     uint64
	Misses      uint64
	Compactions uint64
	Resizes     uint64
}

// Stats returns a snapshot of the store.  Each field is read atomically but
// the snapshot as a whole is not serialized against concurrent writers, so
// related fields can be momentarily inconsistent with each other.
func (s *Store) Stats() Stats {
	n := s.locks.Load().Len()
	used := s.idx.Used()

	// the log handle is swapped by compaction, which holds seq
	s.seq.Lock()
	logBytes := s.log.Size()
	s.seq.Unlock()

	return Stats{
		BucketCount:      n,
		UsedSlots:        used,
		LoadFactor:       float64(used) / float64(n),
		LogBytes:         logBytes,
		PendingDeletions: s.deletions.Load(),
		Puts:             s.stats.puts.Load(),
		Gets:             s.stats.gets.Load(),
		Deletes:          s.stats.deletes.Load(),
		Misses:           s.stats.misses.Load(),
		Compactions:      s.stats.compactions.Load(),
		Resizes:          s.stats.resizes.Load(),
	}
}
