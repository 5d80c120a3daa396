// Copyright 2025 the assetman authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the engine configuration from
// .assetman.yaml or .assetman.hcl files, with credentials picked up from the
// environment (.env supported).
package config

import (
	"time"

	"gitlab.com/tozd/go/errors"
)

// 🔧 Config is the engine configuration
type Config struct {
	// BaseURL is the catalog API endpoint
	BaseURL string `yaml:"base_url" hcl:"base_url"`
	// Project scopes asset paths, when the catalog requires one
	Project string `yaml:"project,omitempty" hcl:"project,optional"`
	// MaxParallel bounds concurrent remote calls per batch
	MaxParallel int `yaml:"max_parallel,omitempty" hcl:"max_parallel,optional"`
	// CallTimeoutSeconds bounds each individual remote call
	CallTimeoutSeconds int `yaml:"call_timeout_seconds,omitempty" hcl:"call_timeout_seconds,optional"`

	Retry RetryConfig `yaml:"retry,omitempty" hcl:"retry,block"`

	// location is the file this config was loaded from
	location string
}

// 🔁 RetryConfig tunes the transient-failure backoff
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts,omitempty" hcl:"max_attempts,optional"`
	BaseDelayMS int `yaml:"base_delay_ms,omitempty" hcl:"base_delay_ms,optional"`
	MaxDelayMS  int `yaml:"max_delay_ms,omitempty" hcl:"max_delay_ms,optional"`
}

// Location returns the path the config was loaded from, or "" for defaults
func (c *Config) Location() string {
	return c.location
}

// CallTimeout returns the per-call timeout as a duration
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// BaseDelay returns the retry base delay as a duration
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the retry delay cap as a duration
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// Default returns the built-in configuration used when no file is present
func Default() *Config {
	return &Config{
		BaseURL:            "https://earthengine.googleapis.com",
		MaxParallel:        10,
		CallTimeoutSeconds: 30,
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseDelayMS: 500,
			MaxDelayMS:  8000,
		},
	}
}

// 🔍 Validate fills defaults and rejects unusable settings
func (c *Config) Validate() error {
	def := Default()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.MaxParallel == 0 {
		c.MaxParallel = def.MaxParallel
	}
	if c.MaxParallel < 1 {
		return errors.Errorf("max_parallel must be at least 1, got %d", c.MaxParallel)
	}
	if c.CallTimeoutSeconds == 0 {
		c.CallTimeoutSeconds = def.CallTimeoutSeconds
	}
	if c.CallTimeoutSeconds < 0 {
		return errors.Errorf("call_timeout_seconds must not be negative, got %d", c.CallTimeoutSeconds)
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelayMS == 0 {
		c.Retry.BaseDelayMS = def.Retry.BaseDelayMS
	}
	if c.Retry.MaxDelayMS == 0 {
		c.Retry.MaxDelayMS = def.Retry.MaxDelayMS
	}
	if c.Retry.MaxDelayMS < c.Retry.BaseDelayMS {
		return errors.Errorf("retry.max_delay_ms (%d) must not be below retry.base_delay_ms (%d)",
			c.Retry.MaxDelayMS, c.Retry.BaseDelayMS)
	}
	return nil
}
