// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pail

import (
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"

	"github.com/pailkv/pail/internal/bitset"
	"github.com/pailkv/pail/internal/datalog"
	"github.com/pailkv/pail/internal/fileio"
	"github.com/pailkv/pail/internal/ondisk"
	"github.com/pailkv/pail/internal/stripe"
)

// Compact rewrites the data log with only the records live slots point at,
// reclaiming bytes orphaned by overwrites and deletes.  The store is
// stopped for the duration: every slot lock and the append sequencer are
// held.  The new log is built in a temp file, synced, and atomically
// renamed over the old one, so a failure anywhere before the swap leaves
// the store exactly as it was.
func (s *Store) Compact() error {
	if s.closed.Load() {
		return ErrClosed
	}
	_, release := s.lockAllSlots()
	defer release()
	s.seq.Lock()
	defer s.seq.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	return s.compactLocked()
}

// maybeResize re-evaluates the load factor under the store-wide barrier and
// resizes the directory if the trigger still holds.  Put and Delete detect
// triggers optimistically under their slot lock; by the time the barrier is
// acquired another operation may already have resized, so the condition is
// checked again before committing to the rebuild.
func (s *Store) maybeResize() error {
	set, release := s.lockAllSlots()
	defer release()
	s.seq.Lock()
	defer s.seq.Unlock()
	if s.closed.Load() {
		return nil
	}
	newN, ok := s.idx.Target(set.Len())
	if !ok {
		return nil
	}
	return s.resizeLocked(set, newN)
}

// compactLocked does the rewrite.  Callers hold every slot lock and seq.
func (s *Store) compactLocked() error {
	start := time.Now()
	oldSize := s.log.Size()

	tmp, err := os.CreateTemp(s.dir, "pail-compact.*.dat")
	if err != nil {
		return fmt.Errorf("os.CreateTemp: %w", err)
	}
	tmpPath := tmp.Name()
	newLog := datalog.New(fileio.FromOS(tmp))

	// Copy the records live slots point at, in slot order, remembering the
	// offset each lands at.  Slots are repointed only after the swap has
	// succeeded; until then the old log and directory stay authoritative.
	type reloc struct {
		slot int
		off  int64
	}
	var relocs []reloc
	err = s.buckets.Walk(func(slot int, ptr int64) error {
		rec, err := s.log.ReadRaw(ptr)
		if err != nil {
			return err
		}
		off, err := newLog.Append(rec)
		if err != nil {
			return err
		}
		relocs = append(relocs, reloc{slot: slot, off: off})
		return nil
	})
	if err != nil {
		_ = newLog.Close()
		_ = os.Remove(tmpPath)
		return classify(fmt.Errorf("copy live records: %w", err))
	}
	if err := newLog.Sync(); err != nil {
		_ = newLog.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := newLog.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	logPath := s.log.Path()
	if err := atomic.ReplaceFile(tmpPath, logPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", logPath, err)
	}
	if err := s.log.Close(); err != nil {
		s.logger.Warn("closing pre-compaction log", "err", err)
	}
	reopened, err := datalog.Open(logPath, s.opts.syncWrites)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", logPath, err)
	}
	s.log = reopened

	for _, r := range relocs {
		if err := s.buckets.SetSlot(r.slot, r.off); err != nil {
			return classify(err)
		}
	}
	// stale pointers into the replaced log must not survive a crash
	if err := s.buckets.Sync(); err != nil {
		return err
	}

	s.stats.compactions.Add(1)
	s.logger.Info("compacted data log",
		"records", len(relocs),
		"reclaimed_bytes", oldSize-s.log.Size(),
		"log_bytes", s.log.Size(),
		"duration", time.Since(start))
	return nil
}

// resizeLocked rebuilds the bucket directory at newN slots, rehashing every
// live record by the key embedded in it.  Callers hold every lock of set
// plus seq.
func (s *Store) resizeLocked(set *stripe.Set, newN int) error {
	start := time.Now()
	oldN := set.Len()

	tmp, err := os.CreateTemp(s.dir, "pail-resize.*.dat")
	if err != nil {
		return fmt.Errorf("os.CreateTemp: %w", err)
	}
	tmpPath := tmp.Name()
	newDir, err := ondisk.Create(fileio.FromOS(tmp), newN)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	// Rehash under the new slot count.  Keys aliasing the same new slot
	// collapse to the last writer, same as they would have had they been
	// put at this size; the bitset counts each used slot once so the
	// load-factor counter stays exact.
	occupied := bitset.New(newN)
	moved := 0
	err = s.buckets.Walk(func(_ int, ptr int64) error {
		key, _, err := s.log.ReadRecord(ptr)
		if err != nil {
			return err
		}
		newSlot := s.idx.SlotForBytes(key, newN)
		if err := newDir.SetSlot(newSlot, ptr); err != nil {
			return err
		}
		occupied.Set(newSlot)
		moved++
		return nil
	})
	if err != nil {
		_ = newDir.Close()
		_ = os.Remove(tmpPath)
		return classify(fmt.Errorf("rehash live records: %w", err))
	}
	if err := newDir.Sync(); err != nil {
		_ = newDir.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := newDir.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	bucketsPath := s.buckets.Path()
	if err := atomic.ReplaceFile(tmpPath, bucketsPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", bucketsPath, err)
	}
	if err := s.buckets.Close(); err != nil {
		s.logger.Warn("closing pre-resize directory", "err", err)
	}
	reopened, err := ondisk.Open(bucketsPath, newN)
	if err != nil {
		return classify(fmt.Errorf("reopen %s: %w", bucketsPath, err))
	}
	s.buckets = reopened
	s.idx.SetUsed(int64(occupied.Count()))

	// Install a lock generation sized to the new directory.  Operations
	// blocked on old-generation locks observe the swap once set's locks
	// release and retry against the new one.
	s.locks.Store(stripe.NewSet(newN))

	s.stats.resizes.Add(1)
	s.logger.Info("resized bucket directory",
		"old_buckets", oldN,
		"new_buckets", newN,
		"live_records", moved,
		"used_slots", occupied.Count(),
		"duration", time.Since(start))
	return nil
}
