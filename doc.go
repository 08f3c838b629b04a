// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package pail implements a single-node, file-backed key-value store: a
// persistent hash table with constant-time access to values by key.
//
// A store is a directory holding two files:
//
//	┌────────────────────┐      ┌────────────────────┐
//	│ buckets.dat        │      │ data.dat           │
//	├────────────────────┤      ├────────────────────┤
//	│ slot 0: offset/-1  │──┐   │ record             │
//	│ slot 1: offset/-1  │  └──▶│ record             │
//	│ ...                │      │ record             │
//	│ slot n-1           │      │ ...                │
//	└────────────────────┘      └────────────────────┘
//
// The bucket directory is a fixed array of 8-byte big-endian slots, one per
// hash bucket; a slot holds the data-log offset of its current record, or
// -1 when empty.  The data log is append-only: every put appends a fresh
// length-prefixed record and repoints the key's slot, leaving the old bytes
// orphaned until a compaction rewrites the log.  Deletes tombstone the slot
// by writing -1; every DeletionThreshold'th delete triggers a compaction.
// When the ratio of used slots to total slots leaves the configured load
// band, the directory is rebuilt at double or half its size and every live
// record is rehashed into it.
//
// Keys do not chain within a bucket.  Two keys hashing to the same slot
// alias each other: the later put wins the slot, and a Get of the earlier
// key returns the later key's value.  At the default 10000 buckets and 0.7
// upper load factor this is a tolerated property, not an error; callers
// needing strict key identity must verify it themselves.
//
// A Store is safe for concurrent use.  Reads of distinct buckets run in
// parallel; writes serialize per bucket plus a short critical section on
// the log's append sequencer.  Compaction and resize briefly stop the world
// by taking every bucket lock.
package pail
