// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pail

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config mirrors the store's tuning options for file-based configuration.
// Config files are HuJSON: JSON plus comments and trailing commas, so a
// tuning file can document itself.
type Config struct {
	BucketCount       int     `json:"bucket_count"`
	DeletionThreshold int     `json:"deletion_threshold"`
	UpperLoadFactor   float64 `json:"upper_load_factor"`
	LowerLoadFactor   float64 `json:"lower_load_factor"`
	SyncWrites        bool    `json:"sync_writes"`
}

// DefaultConfig returns the store's default tuning.
func DefaultConfig() Config {
	return Config{
		BucketCount:       DefaultBucketCount,
		DeletionThreshold: DefaultDeletionThreshold,
		UpperLoadFactor:   DefaultUpperLoadFactor,
		LowerLoadFactor:   DefaultLowerLoadFactor,
	}
}

// LoadConfig reads the HuJSON config at path and overlays it on the
// defaults, so partial files only override what they name.  A missing file
// is not an error: the defaults are returned unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("os.ReadFile(%s): %w", path, err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := json.Unmarshal(std, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	opts := defaultOptions()
	WithConfig(c)(&opts)
	return opts.validate()
}
