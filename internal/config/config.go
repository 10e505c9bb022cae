// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the JSON configuration file of the ovf example
// server (cmd/ovf-serve); the other cmd/ovf-* tools take flags only.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Keys holds the options cmd/ovf-serve reads. Fields not present
// in a user-supplied config file keep their default value below.
type Keys struct {
	// Addr is where ovf-serve listens (for example ":8080").
	Addr string `json:"addr"`

	// AutoCacheThresholdBytes overrides ovf.DefaultAutoCacheThreshold; 0
	// keeps the default, a negative value disables auto-caching.
	AutoCacheThresholdBytes int64 `json:"auto-cache-threshold-bytes"`

	// LogLevel is one of "debug", "info", "warn", "err"/"fatal".
	LogLevel string `json:"log-level"`
}

// Default returns the built-in defaults, which apply when no config file
// is given.
func Default() Keys {
	return Keys{
		Addr:     ":8080",
		LogLevel: "info",
	}
}

// Load reads path as JSON into a copy of Default(), rejecting unknown
// fields so a typo in the config file surfaces immediately instead of
// being silently ignored. A missing file is not an error; it just means
// the defaults apply.
func Load(path string) (Keys, error) {
	keys := Default()
	if path == "" {
		return keys, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return keys, nil
		}
		return keys, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&keys); err != nil {
		return keys, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return keys, nil
}
