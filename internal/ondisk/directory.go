// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package ondisk manages the bucket directory file: a flat, fully
// preallocated array of 8-byte big-endian slots, one per bucket.
//
// Slot i lives at byte offset i*8.  A slot holds either the data-log offset
// of the bucket's current record, or SlotEmpty.  The sentinel is -1, whose
// big-endian image is all 0xFF bytes, so a freshly preallocated directory
// is one repeated byte.  Offset 0 is a valid pointer: the first record in
// the log lives there.
package ondisk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pailkv/pail/internal/fileio"
)

// SlotEmpty marks a slot with no live pointer, either never written or
// tombstoned by a delete.
const SlotEmpty int64 = -1

const (
	slotSize = 8

	// chunk size for preallocation and scans
	ioChunk       = 1 << 20
	slotsPerChunk = ioChunk / slotSize
)

var (
	// ErrSlotRange means an operation named a slot outside the directory.
	ErrSlotRange = errors.New("ondisk: slot out of range")

	// ErrBadLength means the directory file's length is not a positive
	// multiple of the slot size, so no slot count can explain it.
	ErrBadLength = errors.New("ondisk: directory length not a multiple of slot size")
)

// Directory is the on-disk slot array.  It carries no locking of its own;
// the store's slot locks serialize access.
type Directory struct {
	f *fileio.File
	n int
}

// Open opens the directory at path.  A new or empty file is preallocated
// with defaultSlots sentinel slots.  An existing file's slot count derives
// from its length: the file, not the configuration, is authoritative for a
// store that was resized and reopened.
func Open(path string, defaultSlots int) (*Directory, error) {
	f, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	length, err := f.Len()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if length == 0 {
		if err := preallocate(f, defaultSlots); err != nil {
			_ = f.Close()
			return nil, err
		}
		return &Directory{f: f, n: defaultSlots}, nil
	}
	if length%slotSize != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %d bytes", ErrBadLength, length)
	}
	return &Directory{f: f, n: int(length / slotSize)}, nil
}

// Create preallocates a directory of n sentinel slots onto f, which is
// typically a temp file mid-resize.  Any existing contents are discarded.
func Create(f *fileio.File, n int) (*Directory, error) {
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if err := preallocate(f, n); err != nil {
		return nil, err
	}
	return &Directory{f: f, n: n}, nil
}

// preallocate writes n sentinel slots so that every byte of the directory
// exists on disk up front.
func preallocate(f *fileio.File, n int) error {
	total := int64(n) * slotSize
	buf := bytes.Repeat([]byte{0xff}, int(min(total, ioChunk)))
	for off := int64(0); off < total; {
		chunk := min(total-off, int64(len(buf)))
		if err := f.WriteAt(buf[:chunk], off); err != nil {
			return fmt.Errorf("preallocate %d slots: %w", n, err)
		}
		off += chunk
	}
	return nil
}

// Path returns the path of the backing file.
func (d *Directory) Path() string {
	return d.f.Name()
}

// Len returns the slot count.
func (d *Directory) Len() int {
	return d.n
}

// Slot returns the pointer stored in slot i.
func (d *Directory) Slot(i int) (int64, error) {
	if i < 0 || i >= d.n {
		return 0, fmt.Errorf("%w: slot %d of %d", ErrSlotRange, i, d.n)
	}
	return d.f.ReadInt64At(int64(i) * slotSize)
}

// SetSlot stores ptr into slot i.
func (d *Directory) SetSlot(i int, ptr int64) error {
	if i < 0 || i >= d.n {
		return fmt.Errorf("%w: slot %d of %d", ErrSlotRange, i, d.n)
	}
	return d.f.WriteInt64At(ptr, int64(i)*slotSize)
}

// Walk calls fn for every live slot in ascending order with the slot index
// and its pointer.  The directory is read in large chunks rather than slot
// by slot; callers hold whatever locks make that snapshot consistent.
func (d *Directory) Walk(fn func(slot int, ptr int64) error) error {
	buf := make([]byte, min(d.n, slotsPerChunk)*slotSize)
	for base := 0; base < d.n; base += slotsPerChunk {
		count := min(d.n-base, slotsPerChunk)
		b := buf[:count*slotSize]
		if err := d.f.ReadFullAt(b, int64(base)*slotSize); err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			ptr := int64(binary.BigEndian.Uint64(b[i*slotSize:]))
			if ptr == SlotEmpty {
				continue
			}
			if err := fn(base+i, ptr); err != nil {
				return err
			}
		}
	}
	return nil
}

// CountUsed scans the directory and returns the number of live slots.  The
// load-factor counter is not persisted, so every open rebuilds it this way.
func (d *Directory) CountUsed() (int64, error) {
	var used int64
	err := d.Walk(func(int, int64) error {
		used++
		return nil
	})
	return used, err
}

// Sync flushes the directory to stable storage.
func (d *Directory) Sync() error {
	return d.f.Sync()
}

// Close closes the backing file without syncing.
func (d *Directory) Close() error {
	return d.f.Close()
}
