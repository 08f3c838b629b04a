// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bitset

import "math/bits"

// Bitset is an in-memory bitmap that is conceptually similar to []bool, but
// more memory efficient.  The directory resize uses one to track which new
// slots received a pointer, so colliding entries are counted once.
type Bitset struct {
	bits   []uint64
	length int
}

// New returns a bitset covering positions [0, length).
func New(length int) *Bitset {
	return &Bitset{
		bits:   make([]uint64, (length+63)/64),
		length: length,
	}
}

func getOffsets(off int) (sliceOff int, bitOff uint) {
	return off / 64, uint(off) % 64
}

// Set sets the bit at position off to 1.  Out-of-range positions are
// ignored.
func (b *Bitset) Set(off int) {
	if off < 0 || off >= b.length {
		return
	}
	sliceOff, bitOff := getOffsets(off)
	b.bits[sliceOff] |= 1 << bitOff
}

// Clear sets the bit at position off to 0.
func (b *Bitset) Clear(off int) {
	if off < 0 || off >= b.length {
		return
	}
	sliceOff, bitOff := getOffsets(off)
	b.bits[sliceOff] &= ^(uint64(1) << bitOff)
}

// IsSet returns true if the bit at position off is 1.
func (b *Bitset) IsSet(off int) bool {
	if off < 0 || off >= b.length {
		return false
	}
	sliceOff, bitOff := getOffsets(off)
	return b.bits[sliceOff]&(1<<bitOff) != 0
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.bits {
		n += bits.OnesCount64(w)
	}
	return n
}
