// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetClearIsSet(t *testing.T) {
	b := New(130)

	// word boundaries are where the offset math can go wrong
	for _, i := range []int{0, 1, 63, 64, 65, 127, 128, 129} {
		assert.False(t, b.IsSet(i))
		b.Set(i)
		assert.True(t, b.IsSet(i))
	}
	require.Equal(t, 8, b.Count())

	b.Clear(64)
	assert.False(t, b.IsSet(64))
	assert.True(t, b.IsSet(63))
	assert.True(t, b.IsSet(65))
	require.Equal(t, 7, b.Count())
}

func TestOutOfRange(t *testing.T) {
	b := New(10)

	b.Set(10)
	b.Set(-1)
	assert.False(t, b.IsSet(10))
	assert.False(t, b.IsSet(-1))
	assert.Zero(t, b.Count())
}

func TestCountDedupes(t *testing.T) {
	b := New(100)
	for i := 0; i < 50; i++ {
		b.Set(7) // same position over and over
	}
	assert.Equal(t, 1, b.Count())
}

func TestEmpty(t *testing.T) {
	b := New(0)
	b.Set(0)
	assert.False(t, b.IsSet(0))
	assert.Zero(t, b.Count())
}
