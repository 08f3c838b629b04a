// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package unsafestring

import "unsafe"

// ToBytes returns a byte slice referring to the contents of the input string.
// Keys are hashed and written on every operation; aliasing instead of
// copying keeps those paths allocation-free.
// SAFETY: the returned byte slice must never be written to, only read.
func ToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
