// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package flock guards a store directory against concurrent processes with
// an advisory file lock.
package flock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked means the lock is already held, by another process or by another
// handle in this one.
var ErrLocked = errors.New("flock: already locked")

// Lock is a held exclusive lock on a lock file.  The lock lives as long as
// the descriptor: process death releases it, so a crashed owner never
// strands the store.
type Lock struct {
	f *os.File
}

// Acquire takes a non-blocking exclusive flock on path, creating the file if
// needed.  It fails with ErrLocked when the lock is held elsewhere.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("os.OpenFile(%s): %w", path, err)
	}
	if err := flockRetry(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("flock(%s): %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock and closes the descriptor.  The lock file itself is
// left in place for the next owner.  Safe on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	if err := flockRetry(int(f.Fd()), unix.LOCK_UN); err != nil {
		_ = f.Close()
		return fmt.Errorf("flock unlock: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("f.Close: %w", err)
	}
	return nil
}

// flockRetry retries flock on EINTR, which the raw syscall surfaces even for
// non-blocking requests.
func flockRetry(fd int, how int) error {
	for {
		err := unix.Flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
