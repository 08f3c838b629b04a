// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package stripe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotIdentity(t *testing.T) {
	s := NewSet(8)

	require.Equal(t, 8, s.Len())
	assert.Same(t, s.Slot(3), s.Slot(3))
	assert.NotSame(t, s.Slot(3), s.Slot(4))
}

func TestLockAllExcludesSlotLocks(t *testing.T) {
	s := NewSet(4)
	s.LockAll()

	for i := 0; i < s.Len(); i++ {
		assert.Falsef(t, s.Slot(i).TryLock(), "slot %d lock acquired under barrier", i)
		assert.Falsef(t, s.Slot(i).TryRLock(), "slot %d rlock acquired under barrier", i)
	}

	s.UnlockAll()
	for i := 0; i < s.Len(); i++ {
		require.True(t, s.Slot(i).TryLock())
		s.Slot(i).Unlock()
	}
}

func TestConcurrentBarriers(t *testing.T) {
	// two goroutines repeatedly taking the full barrier must not deadlock,
	// which is the point of the ascending acquisition order
	s := NewSet(16)

	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.LockAll()
				s.UnlockAll()
			}
		}()
	}
	wg.Wait()
}
