// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package fileio provides positioned, big-endian file access for the store's
// on-disk structures.  Every read and write names an explicit offset
// (pread/pwrite underneath); there is no shared cursor, so concurrent
// readers never interleave with each other or with appends.
package fileio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// File wraps an *os.File with offset-addressed accessors for the fixed-width
// integers the store persists.  All integers are big-endian.
type File struct {
	f *os.File
}

// Open opens the file at path read-write, creating it if absent.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("os.OpenFile(%s): %w", path, err)
	}
	return &File{f: f}, nil
}

// FromOS wraps an already-open handle, such as a temp file mid-rebuild.
func FromOS(f *os.File) *File {
	return &File{f: f}
}

// Name returns the path the file was opened with.
func (p *File) Name() string {
	return p.f.Name()
}

// Len returns the current length of the file in bytes.
func (p *File) Len() (int64, error) {
	st, err := p.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("f.Stat: %w", err)
	}
	return st.Size(), nil
}

// ReadInt64At reads the 8-byte big-endian signed integer at off.
func (p *File) ReadInt64At(off int64) (int64, error) {
	var buf [8]byte
	if _, err := p.f.ReadAt(buf[:], off); err != nil {
		return 0, fmt.Errorf("f.ReadAt(%d): %w", off, err)
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// WriteInt64At writes v as an 8-byte big-endian signed integer at off.
func (p *File) WriteInt64At(v int64, off int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	if _, err := p.f.WriteAt(buf[:], off); err != nil {
		return fmt.Errorf("f.WriteAt(%d): %w", off, err)
	}
	return nil
}

// ReadInt32At reads the 4-byte big-endian signed integer at off.
func (p *File) ReadInt32At(off int64) (int32, error) {
	var buf [4]byte
	if _, err := p.f.ReadAt(buf[:], off); err != nil {
		return 0, fmt.Errorf("f.ReadAt(%d): %w", off, err)
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// WriteInt32At writes v as a 4-byte big-endian signed integer at off.
func (p *File) WriteInt32At(v int32, off int64) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	if _, err := p.f.WriteAt(buf[:], off); err != nil {
		return fmt.Errorf("f.WriteAt(%d): %w", off, err)
	}
	return nil
}

// ReadFullAt fills buf with the bytes at off.  A read that cannot fill buf
// returns an error (io.ReaderAt contract), so callers never see short reads.
func (p *File) ReadFullAt(buf []byte, off int64) error {
	if _, err := p.f.ReadAt(buf, off); err != nil {
		return fmt.Errorf("f.ReadAt(%d, %d bytes): %w", off, len(buf), err)
	}
	return nil
}

// WriteAt writes buf at off, extending the file if needed.
func (p *File) WriteAt(buf []byte, off int64) error {
	if _, err := p.f.WriteAt(buf, off); err != nil {
		return fmt.Errorf("f.WriteAt(%d, %d bytes): %w", off, len(buf), err)
	}
	return nil
}

// Truncate changes the file's length to n bytes.
func (p *File) Truncate(n int64) error {
	if err := p.f.Truncate(n); err != nil {
		return fmt.Errorf("f.Truncate(%d): %w", n, err)
	}
	return nil
}

// Sync flushes the file's contents to stable storage.
func (p *File) Sync() error {
	if err := p.f.Sync(); err != nil {
		return fmt.Errorf("f.Sync: %w", err)
	}
	return nil
}

// Close closes the underlying descriptor.
func (p *File) Close() error {
	return p.f.Close()
}
