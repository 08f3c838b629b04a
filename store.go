// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pail

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/pailkv/pail/internal/bucket"
	"github.com/pailkv/pail/internal/datalog"
	"github.com/pailkv/pail/internal/flock"
	"github.com/pailkv/pail/internal/ondisk"
	"github.com/pailkv/pail/internal/stripe"
	"github.com/pailkv/pail/internal/unsafestring"
)

// File names within a store directory.
const (
	BucketFileName = "buckets.dat"
	DataFileName   = "data.dat"

	lockFileName = "LOCK"
)

// MaxKeyLen and MaxValueLen bound the arguments Put accepts.
const (
	MaxKeyLen   = datalog.MaxKeyLen
	MaxValueLen = datalog.MaxValueLen
)

// Store is an open key-value store.  All methods are safe for concurrent
// use by multiple goroutines; a store directory is additionally guarded
// against other processes by an advisory file lock taken at Open.
type Store struct {
	dir    string
	opts   options
	logger *slog.Logger

	idx *bucket.Indexer

	// locks is the current lock generation, one RWMutex per slot; its
	// length is the live bucket count.  Resize swaps in a fresh generation
	// while holding every outgoing lock, and operations that raced the
	// swap re-check and retry (see lockSlot).
	locks atomic.Pointer[stripe.Set]

	// seq serializes appends to the data log.  Lock order everywhere in
	// this package: slot locks in ascending index order first, then seq.
	seq sync.Mutex

	buckets *ondisk.Directory
	log     *datalog.Log

	dirLock   *flock.Lock
	deletions atomic.Int64
	closed    atomic.Bool

	stats counters
}

// Open opens the store rooted at dir, creating the directory and its files
// on first use.  A second Open of the same dir fails with ErrLocked until
// the first store is closed.
func Open(dir string, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll(%s): %w", dir, err)
	}
	dirLock, err := flock.Acquire(filepath.Join(dir, lockFileName))
	if err != nil {
		if errors.Is(err, flock.ErrLocked) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, err
	}

	buckets, err := ondisk.Open(filepath.Join(dir, BucketFileName), o.bucketCount)
	if err != nil {
		_ = dirLock.Release()
		return nil, classify(err)
	}
	log, err := datalog.Open(filepath.Join(dir, DataFileName), o.syncWrites)
	if err != nil {
		_ = buckets.Close()
		_ = dirLock.Release()
		return nil, err
	}

	// The used-slot count is not persisted; rebuild it from the directory
	// so load-factor decisions survive a reopen, including one that follows
	// a resize to a non-default slot count.
	used, err := buckets.CountUsed()
	if err != nil {
		_ = log.Close()
		_ = buckets.Close()
		_ = dirLock.Release()
		return nil, err
	}
	idx := bucket.NewIndexer(o.bucketCount, o.upperLoad, o.lowerLoad)
	idx.SetUsed(used)

	s := &Store{
		dir:     dir,
		opts:    o,
		logger:  o.logger,
		idx:     idx,
		buckets: buckets,
		log:     log,
		dirLock: dirLock,
	}
	s.locks.Store(stripe.NewSet(buckets.Len()))
	s.logger.Info("store opened",
		"dir", dir, "buckets", buckets.Len(), "used_slots", used, "log_bytes", log.Size())
	return s, nil
}

// Get returns the value stored in key's bucket.  It fails with
// ErrKeyNotFound when the slot is empty or tombstoned.  If another key
// aliasing the same bucket wrote after key did, Get returns that key's
// value; see the package documentation.
func (s *Store) Get(key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	slot, unlock := s.lockSlot(key, false)
	defer unlock()
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.stats.gets.Add(1)

	ptr, err := s.buckets.Slot(slot)
	if err != nil {
		return nil, classify(err)
	}
	if ptr == ondisk.SlotEmpty {
		s.stats.misses.Add(1)
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	_, value, err := s.log.ReadRecord(ptr)
	if err != nil {
		return nil, classify(err)
	}
	return value, nil
}

// Put stores value under key, overwriting whatever key's bucket currently
// points at.  The record is appended to the data log first and the slot is
// repointed after, so a failed append leaves the old value readable.
func (s *Store) Put(key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if len(key) > MaxKeyLen {
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLarge, len(key))
	}
	if len(value) > MaxValueLen {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(value))
	}
	rec, err := datalog.EncodeRecord(unsafestring.ToBytes(key), value)
	if err != nil {
		return err
	}

	resize, err := s.putRecord(key, rec)
	if err != nil {
		return err
	}
	if resize {
		if err := s.maybeResize(); err != nil {
			return fmt.Errorf("resize after put: %w", err)
		}
	}
	return nil
}

// putRecord performs the locked portion of a Put and reports whether the
// load factor left the configured band.  The resize itself runs after the
// slot lock is released: it needs every slot lock, and slot locks are not
// reentrant.
func (s *Store) putRecord(key string, rec []byte) (resize bool, err error) {
	slot, unlock := s.lockSlot(key, true)
	defer unlock()
	if s.closed.Load() {
		return false, ErrClosed
	}
	s.stats.puts.Add(1)

	old, err := s.buckets.Slot(slot)
	if err != nil {
		return false, classify(err)
	}

	s.seq.Lock()
	off, err := s.log.Append(rec)
	if err == nil {
		if old == ondisk.SlotEmpty {
			s.idx.MarkUsed()
		}
		resize = s.idx.ShouldResize(s.buckets.Len())
	}
	s.seq.Unlock()
	if err != nil {
		return false, err
	}

	if err := s.buckets.SetSlot(slot, off); err != nil {
		if old == ondisk.SlotEmpty {
			s.idx.MarkFree()
		}
		return false, classify(err)
	}
	if s.opts.syncWrites {
		if err := s.buckets.Sync(); err != nil {
			return false, err
		}
	}
	return resize, nil
}

// Delete tombstones key's bucket and reports whether a live entry was
// removed.  Deleting an absent key is not an error.  Every
// DeletionThreshold'th successful delete compacts the data log, and a
// delete that drops the load factor below the lower bound shrinks the
// directory; errors from that maintenance are reported here even though
// the removal itself has already taken effect.
func (s *Store) Delete(key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	deleted, resize, err := s.deleteSlot(key)
	if err != nil || !deleted {
		return deleted, err
	}

	if s.deletions.Add(1) == int64(s.opts.deletionThreshold) {
		s.deletions.Store(0)
		if err := s.Compact(); err != nil && !errors.Is(err, ErrClosed) {
			return true, fmt.Errorf("compact after delete threshold: %w", err)
		}
	}
	if resize {
		if err := s.maybeResize(); err != nil {
			return true, fmt.Errorf("resize after delete: %w", err)
		}
	}
	return true, nil
}

func (s *Store) deleteSlot(key string) (deleted, resize bool, err error) {
	slot, unlock := s.lockSlot(key, true)
	defer unlock()
	if s.closed.Load() {
		return false, false, ErrClosed
	}
	s.stats.deletes.Add(1)

	ptr, err := s.buckets.Slot(slot)
	if err != nil {
		return false, false, classify(err)
	}
	if ptr == ondisk.SlotEmpty {
		return false, false, nil
	}

	if err := s.buckets.SetSlot(slot, ondisk.SlotEmpty); err != nil {
		return false, false, classify(err)
	}
	if s.opts.syncWrites {
		if err := s.buckets.Sync(); err != nil {
			return true, false, err
		}
	}
	s.idx.MarkFree()
	return true, s.idx.ShouldResize(s.buckets.Len()), nil
}

// Close drains in-flight operations, flushes both files and releases the
// directory lock.  Operations started after Close fail with ErrClosed.
// Closing twice is a no-op.
func (s *Store) Close() error {
	_, release := s.lockAllSlots()
	s.seq.Lock()
	swapped := s.closed.CompareAndSwap(false, true)
	s.seq.Unlock()
	release()
	if !swapped {
		return nil
	}

	// the closed flag gates every operation once the barrier drains, so
	// the files below are no longer shared
	var errs []error
	if err := s.log.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := s.log.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.buckets.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := s.buckets.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.dirLock.Release(); err != nil {
		errs = append(errs, err)
	}
	s.logger.Info("store closed", "dir", s.dir)
	return errors.Join(errs...)
}

// lockSlot resolves key to a slot under the current lock generation and
// acquires that slot's lock.  A resize can swap generations between the
// generation load and the lock acquisition, but only while holding every
// old-generation lock; so after acquiring, a changed generation pointer
// means the held lock no longer guards anything and the op retries.
func (s *Store) lockSlot(key string, exclusive bool) (int, func()) {
	for {
		set := s.locks.Load()
		slot := s.idx.SlotFor(key, set.Len())
		l := set.Slot(slot)
		if exclusive {
			l.Lock()
		} else {
			l.RLock()
		}
		if s.locks.Load() == set {
			if exclusive {
				return slot, l.Unlock
			}
			return slot, l.RUnlock
		}
		if exclusive {
			l.Unlock()
		} else {
			l.RUnlock()
		}
	}
}

// lockAllSlots pins the current generation by acquiring every slot lock in
// ascending order.  Once all are held no resize is mid-flight, so the
// returned set is guaranteed current until release.
func (s *Store) lockAllSlots() (*stripe.Set, func()) {
	for {
		set := s.locks.Load()
		set.LockAll()
		if s.locks.Load() == set {
			return set, set.UnlockAll
		}
		set.UnlockAll()
	}
}

// classify maps internal storage errors onto the public taxonomy: anything
// reporting untrustworthy on-disk state surfaces as ErrCorrupt, everything
// else (I/O failures) passes through for the caller to see verbatim.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, datalog.ErrCorrupt) ||
		errors.Is(err, ondisk.ErrSlotRange) ||
		errors.Is(err, ondisk.ErrBadLength) {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return err
}
