// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pail

import "errors"

// Sentinel errors returned by Store operations.  Match with errors.Is; the
// returned errors wrap these with operation detail.
var (
	// ErrKeyNotFound is returned by Get when the key's slot holds no live
	// pointer.  It is an expected outcome, not a fault.
	ErrKeyNotFound = errors.New("pail: key not found")

	// ErrCorrupt means on-disk state that cannot be trusted: a negative or
	// implausibly large record length, a record overrunning the log, or a
	// directory file whose shape matches no slot count.  Operations fail
	// rather than guess.
	ErrCorrupt = errors.New("pail: corrupt store")

	// ErrClosed is returned by operations on a closed Store.
	ErrClosed = errors.New("pail: store is closed")

	// ErrLocked means another process (or another Store in this one) holds
	// the store directory.
	ErrLocked = errors.New("pail: store directory locked")

	// ErrInvalidConfig reports unusable option or config file values.
	ErrInvalidConfig = errors.New("pail: invalid configuration")

	// ErrKeyTooLarge and ErrValueTooLarge reject oversized Put arguments
	// before anything touches disk.
	ErrKeyTooLarge   = errors.New("pail: key exceeds maximum length")
	ErrValueTooLarge = errors.New("pail: value exceeds maximum length")
)
