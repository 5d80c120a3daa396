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

package config

import (
	"context"
	"os"

	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config file parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

// 🗺️ parsers is the list of registered parsers
var parsers []Parser

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// Load reads, parses and validates the config file at path. Format is
// chosen by extension through the parser registry.
func Load(ctx context.Context, path string) (*Config, error) {
	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser for config file %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}
	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	cfg.location = path
	return cfg, nil
}

// defaultFiles is the lookup order when no explicit config path is given
var defaultFiles = []string{".assetman.yaml", ".assetman.yml", ".assetman.hcl"}

// Discover loads the first config file found in dir, falling back to the
// built-in defaults when none exists
func Discover(ctx context.Context, dir string) (*Config, error) {
	for _, name := range defaultFiles {
		path := dir + string(os.PathSeparator) + name
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return Load(ctx, path)
	}
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
