// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package datalog implements the append-only record log backing the store.
//
// A record is length-prefixed and self-contained:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| payload length    | key length        |
//	+----+----+----+----+----+----+----+----+
//	| key...            | value...          |
//	+----+----+----+----+----+----+----+----+
//
// Both lengths are 4-byte big-endian signed integers.  The payload length
// counts everything after the prefix (key length field, key, value); the
// key length counts only the key bytes.  Embedding the key lets a directory
// resize rehash live records without any in-memory key index, at the cost
// of a few bytes per record.
//
// Records are never updated in place.  Overwrites append a fresh record and
// repoint the directory slot; the orphaned bytes stay in the file until the
// next compaction rewrites it.
package datalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/pailkv/pail/internal/fileio"
)

const (
	// MaxKeyLen and MaxValueLen bound a single record.  A length prefix
	// claiming more than they allow is treated as corruption rather than
	// trusted: on the read path the file, not the caller, is suspect.
	MaxKeyLen   = 1 << 16 // 64 KiB
	MaxValueLen = 1 << 24 // 16 MiB

	lenPrefixSize = 4
	keyLenSize    = 4
	maxPayload    = keyLenSize + MaxKeyLen + MaxValueLen
)

// ErrCorrupt indicates on-disk bytes that cannot be trusted: a negative or
// implausibly large length prefix, a truncated record, or an envelope whose
// key length does not fit its payload.
var ErrCorrupt = errors.New("datalog: corrupt record")

// Log is an append-only record log over a single file.  Appends must be
// serialized by the caller (the store's append sequencer); positioned reads
// are safe concurrently with each other and with appends.
type Log struct {
	f        *fileio.File
	size     atomic.Int64 // next append offset; mirrors the file length
	syncEach bool         // fsync after every append
}

// Open opens or creates the log at path.  Appends resume at the current end
// of the file.
func Open(path string, syncWrites bool) (*Log, error) {
	f, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	size, err := f.Len()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	l := &Log{f: f, syncEach: syncWrites}
	l.size.Store(size)
	return l, nil
}

// New wraps an empty file, typically a temp file being filled by
// compaction.  Appends are not individually fsynced; the rebuild syncs once
// before swapping the file into place.
func New(f *fileio.File) *Log {
	return &Log{f: f}
}

// Path returns the path of the backing file.
func (l *Log) Path() string {
	return l.f.Name()
}

// Size returns the offset the next append will be placed at, which equals
// the length of the file.
func (l *Log) Size() int64 {
	return l.size.Load()
}

// EncodeRecord builds the on-disk bytes for a key/value pair: payload
// length prefix, key length, key, value.
func EncodeRecord(key, value []byte) ([]byte, error) {
	if len(key) > MaxKeyLen {
		return nil, fmt.Errorf("EncodeRecord: key length %d exceeds %d", len(key), MaxKeyLen)
	}
	if len(value) > MaxValueLen {
		return nil, fmt.Errorf("EncodeRecord: value length %d exceeds %d", len(value), MaxValueLen)
	}
	payload := keyLenSize + len(key) + len(value)
	buf := make([]byte, lenPrefixSize+payload)
	binary.BigEndian.PutUint32(buf[0:], uint32(payload))
	binary.BigEndian.PutUint32(buf[lenPrefixSize:], uint32(len(key)))
	copy(buf[lenPrefixSize+keyLenSize:], key)
	copy(buf[lenPrefixSize+keyLenSize+len(key):], value)
	return buf, nil
}

// Append writes an encoded record at the end of the log and returns the
// offset it was stored at.  The offset only advances after a successful
// write, so a failed append leaves the log's logical state unchanged.
func (l *Log) Append(rec []byte) (int64, error) {
	off := l.size.Load()
	if err := l.f.WriteAt(rec, off); err != nil {
		return 0, fmt.Errorf("append at %d: %w", off, err)
	}
	l.size.Store(off + int64(len(rec)))
	if l.syncEach {
		if err := l.f.Sync(); err != nil {
			return 0, err
		}
	}
	return off, nil
}

// ReadRecord returns the key and value of the record at off.  The returned
// slices are backed by a buffer allocated for this call; the Log retains no
// reference to them.
func (l *Log) ReadRecord(off int64) (key, value []byte, err error) {
	payload, err := l.readPayload(off)
	if err != nil {
		return nil, nil, err
	}
	keyLen := int32(binary.BigEndian.Uint32(payload))
	if keyLen < 0 || int(keyLen) > len(payload)-keyLenSize {
		return nil, nil, fmt.Errorf("%w: key length %d in %d-byte payload at offset %d",
			ErrCorrupt, keyLen, len(payload), off)
	}
	return payload[keyLenSize : keyLenSize+keyLen], payload[keyLenSize+keyLen:], nil
}

// ReadRaw returns the complete encoded record at off, prefix included.
// Compaction copies records between logs this way, byte for byte.
func (l *Log) ReadRaw(off int64) ([]byte, error) {
	payloadLen, err := l.checkPrefix(off)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, lenPrefixSize+int(payloadLen))
	if err := l.f.ReadFullAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

func (l *Log) readPayload(off int64) ([]byte, error) {
	payloadLen, err := l.checkPrefix(off)
	if err != nil {
		return nil, err
	}
	// allocate exactly what the validated prefix promises
	buf := make([]byte, payloadLen)
	if err := l.f.ReadFullAt(buf, off+lenPrefixSize); err != nil {
		return nil, err
	}
	return buf, nil
}

// checkPrefix reads and validates the length prefix at off, returning the
// payload length it promises.
func (l *Log) checkPrefix(off int64) (int32, error) {
	size := l.size.Load()
	if off < 0 || off+lenPrefixSize > size {
		return 0, fmt.Errorf("%w: record offset %d outside log of %d bytes", ErrCorrupt, off, size)
	}
	payloadLen, err := l.f.ReadInt32At(off)
	if err != nil {
		return 0, err
	}
	if payloadLen < keyLenSize || payloadLen > maxPayload {
		return 0, fmt.Errorf("%w: length prefix %d at offset %d", ErrCorrupt, payloadLen, off)
	}
	if off+lenPrefixSize+int64(payloadLen) > size {
		return 0, fmt.Errorf("%w: record at offset %d overruns log of %d bytes", ErrCorrupt, off, size)
	}
	return payloadLen, nil
}

// Sync flushes the log to stable storage.
func (l *Log) Sync() error {
	return l.f.Sync()
}

// Close closes the backing file without syncing.
func (l *Log) Close() error {
	return l.f.Close()
}
