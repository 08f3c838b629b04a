// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ondisk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pailkv/pail/internal/fileio"
)

func openTemp(t *testing.T, slots int) *Directory {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "buckets.dat"), slots)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestPreallocation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buckets.dat")

	d, err := Open(path, 32)
	require.NoError(t, err)
	require.Equal(t, 32, d.Len())
	require.NoError(t, d.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 32*8)
	for i, b := range raw {
		require.Equalf(t, byte(0xff), b, "byte %d not sentinel", i)
	}
}

func TestSlotRoundTrip(t *testing.T) {
	d := openTemp(t, 16)

	ptr, err := d.Slot(5)
	require.NoError(t, err)
	assert.Equal(t, SlotEmpty, ptr)

	require.NoError(t, d.SetSlot(5, 0)) // offset 0 is a valid pointer
	ptr, err = d.Slot(5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ptr)

	require.NoError(t, d.SetSlot(5, 123456))
	ptr, err = d.Slot(5)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), ptr)

	require.NoError(t, d.SetSlot(5, SlotEmpty))
	ptr, err = d.Slot(5)
	require.NoError(t, err)
	assert.Equal(t, SlotEmpty, ptr)
}

func TestSlotRange(t *testing.T) {
	d := openTemp(t, 4)

	_, err := d.Slot(4)
	assert.ErrorIs(t, err, ErrSlotRange)
	_, err = d.Slot(-1)
	assert.ErrorIs(t, err, ErrSlotRange)
	assert.ErrorIs(t, d.SetSlot(4, 0), ErrSlotRange)
}

func TestReopenDerivesSlotCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buckets.dat")

	d, err := Open(path, 64)
	require.NoError(t, err)
	require.NoError(t, d.SetSlot(63, 7))
	require.NoError(t, d.Close())

	// the configured default loses to the on-disk length
	d, err = Open(path, 16)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()
	assert.Equal(t, 64, d.Len())

	ptr, err := d.Slot(63)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ptr)
}

func TestOpenRejectsRaggedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buckets.dat")
	require.NoError(t, os.WriteFile(path, make([]byte, 12), 0o644))

	_, err := Open(path, 16)
	assert.ErrorIs(t, err, ErrBadLength)
}

func TestCreateDiscardsExisting(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "resize.*.dat")
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 100))
	require.NoError(t, err)

	d, err := Create(fileio.FromOS(f), 8)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	require.Equal(t, 8, d.Len())
	for i := 0; i < 8; i++ {
		ptr, err := d.Slot(i)
		require.NoError(t, err)
		assert.Equal(t, SlotEmpty, ptr)
	}
}

func TestWalkVisitsLiveSlots(t *testing.T) {
	d := openTemp(t, 100)
	require.NoError(t, d.SetSlot(3, 30))
	require.NoError(t, d.SetSlot(50, 0))
	require.NoError(t, d.SetSlot(99, 990))

	got := map[int]int64{}
	require.NoError(t, d.Walk(func(slot int, ptr int64) error {
		got[slot] = ptr
		return nil
	}))
	assert.Equal(t, map[int]int64{3: 30, 50: 0, 99: 990}, got)

	used, err := d.CountUsed()
	require.NoError(t, err)
	assert.Equal(t, int64(3), used)
}

func TestCountUsedEmpty(t *testing.T) {
	d := openTemp(t, 50)
	used, err := d.CountUsed()
	require.NoError(t, err)
	assert.Zero(t, used)
}
