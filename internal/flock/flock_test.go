// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package flock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	l1, err := Acquire(path)
	require.NoError(t, err)

	// flock conflicts are per open descriptor, so a second Acquire in the
	// same process is refused just like one from another process.
	_, err = Acquire(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l1.Release())

	l2, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	assert.NoError(t, l.Release())
}

func TestReleaseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")
	l, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l.Release())
	assert.NoError(t, l.Release())
}
