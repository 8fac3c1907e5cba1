// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package config implements configuration file parsing and validation.
package config

import (
	"fmt"
	"slices"

	"sigs.k8s.io/yaml"
)

// Output formats of a match.
const (
	OutputRealized     = "realized"
	OutputIntermediate = "intermediate"
	OutputPointer      = "pointer"
)

// Outputs lists the accepted output formats.
var Outputs = []string{OutputRealized, OutputIntermediate, OutputPointer}

// DefaultCacheSize is the number of compiled grammars kept by default.
const DefaultCacheSize = 16

// Config represents the configuration file that the command line tools can be
// started with.
type Config struct {
	Output           string   `json:"output"`
	RaiseOnFailure   *bool    `json:"raise_on_failure"`
	Roots            []string `json:"roots"`
	Optimize         bool     `json:"optimize"`
	TrackAllocations bool     `json:"track_allocations"`
	Log              Log      `json:"log"`
	Cache            Cache    `json:"cache"`
}

// Log configures logging.
type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Cache configures the compiled grammar cache.
type Cache struct {
	Size int `json:"size"`
}

// ParseConfig returns a valid Config object with defaults injected. The raw
// configuration may be YAML or JSON.
func ParseConfig(raw []byte) (*Config, error) {
	var result Config
	if err := yaml.Unmarshal(raw, &result, yaml.DisallowUnknownFields); err != nil {
		return nil, err
	}
	return &result, result.validateAndInjectDefaults()
}

// Raise returns true if failed matches should be reported as errors.
func (c *Config) Raise() bool {
	return c.RaiseOnFailure == nil || *c.RaiseOnFailure
}

func (c *Config) validateAndInjectDefaults() error {
	if c.Output == "" {
		c.Output = OutputRealized
	}

	if !slices.Contains(Outputs, c.Output) {
		return fmt.Errorf("invalid output %q: must be one of %v", c.Output, Outputs)
	}

	if c.Cache.Size < 0 {
		return fmt.Errorf("invalid cache size %d", c.Cache.Size)
	}

	if c.Cache.Size == 0 {
		c.Cache.Size = DefaultCacheSize
	}

	for _, r := range c.Roots {
		if r == "" {
			return fmt.Errorf("invalid root: empty rule name")
		}
	}

	return nil
}
