// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pail

import (
	"fmt"
	"io"
	"log/slog"
)

// Defaults for a Store opened without options.
const (
	// DefaultBucketCount is the initial directory size, and the floor a
	// shrinking resize never goes below.
	DefaultBucketCount = 10000

	// DefaultDeletionThreshold is how many successful deletes trigger a
	// compaction.
	DefaultDeletionThreshold = 10

	// DefaultUpperLoadFactor and DefaultLowerLoadFactor bound the used-slot
	// ratio the directory is kept inside.
	DefaultUpperLoadFactor = 0.7
	DefaultLowerLoadFactor = 0.3
)

// Option configures a Store at Open.
type Option func(*options)

type options struct {
	bucketCount       int
	deletionThreshold int
	upperLoad         float64
	lowerLoad         float64
	syncWrites        bool
	logger            *slog.Logger
}

func defaultOptions() options {
	return options{
		bucketCount:       DefaultBucketCount,
		deletionThreshold: DefaultDeletionThreshold,
		upperLoad:         DefaultUpperLoadFactor,
		lowerLoad:         DefaultLowerLoadFactor,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithBucketCount sets the slot count for a directory created by this Open.
// A store that already exists keeps its on-disk slot count; the value still
// serves as the floor below which shrinking stops.
func WithBucketCount(n int) Option {
	return func(opts *options) {
		opts.bucketCount = n
	}
}

// WithDeletionThreshold sets how many successful deletes trigger a
// compaction of the data log.
func WithDeletionThreshold(n int) Option {
	return func(opts *options) {
		opts.deletionThreshold = n
	}
}

// WithLoadFactors sets the bounds on used slots over total slots: above
// upper the directory grows, below lower it shrinks toward the initial
// bucket count.
func WithLoadFactors(upper, lower float64) Option {
	return func(opts *options) {
		opts.upperLoad = upper
		opts.lowerLoad = lower
	}
}

// WithSyncWrites forces an fsync after every log append and every slot
// update, trading throughput for durability.  Without it the operating
// system decides when dirty pages reach disk; maintenance rebuilds sync
// regardless.
func WithSyncWrites(on bool) Option {
	return func(opts *options) {
		opts.syncWrites = on
	}
}

// WithLogger sets an optional logger for lifecycle, compaction and resize
// events.  If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithConfig applies a loaded Config wholesale, before any other options.
func WithConfig(cfg Config) Option {
	return func(opts *options) {
		opts.bucketCount = cfg.BucketCount
		opts.deletionThreshold = cfg.DeletionThreshold
		opts.upperLoad = cfg.UpperLoadFactor
		opts.lowerLoad = cfg.LowerLoadFactor
		opts.syncWrites = cfg.SyncWrites
	}
}

func (opts *options) validate() error {
	if opts.bucketCount < 1 {
		return fmt.Errorf("%w: bucket count %d, need at least 1", ErrInvalidConfig, opts.bucketCount)
	}
	if opts.deletionThreshold < 1 {
		return fmt.Errorf("%w: deletion threshold %d, need at least 1", ErrInvalidConfig, opts.deletionThreshold)
	}
	if opts.lowerLoad < 0 {
		return fmt.Errorf("%w: lower load factor %v is negative", ErrInvalidConfig, opts.lowerLoad)
	}
	if opts.upperLoad > 1 {
		return fmt.Errorf("%w: upper load factor %v exceeds 1", ErrInvalidConfig, opts.upperLoad)
	}
	if opts.lowerLoad >= opts.upperLoad {
		return fmt.Errorf("%w: lower load factor %v not below upper %v", ErrInvalidConfig, opts.lowerLoad, opts.upperLoad)
	}
	return nil
}
