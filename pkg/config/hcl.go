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
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	// Local schema: the retry block is optional in HCL, so it decodes into a
	// pointer before conversion
	type hclRetry struct {
		MaxAttempts int `hcl:"max_attempts,optional"`
		BaseDelayMS int `hcl:"base_delay_ms,optional"`
		MaxDelayMS  int `hcl:"max_delay_ms,optional"`
	}
	type hclConfig struct {
		BaseURL            string    `hcl:"base_url,optional"`
		Project            string    `hcl:"project,optional"`
		MaxParallel        int       `hcl:"max_parallel,optional"`
		CallTimeoutSeconds int       `hcl:"call_timeout_seconds,optional"`
		Retry              *hclRetry `hcl:"retry,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{
		BaseURL:            hclCfg.BaseURL,
		Project:            hclCfg.Project,
		MaxParallel:        hclCfg.MaxParallel,
		CallTimeoutSeconds: hclCfg.CallTimeoutSeconds,
	}
	if hclCfg.Retry != nil {
		cfg.Retry = RetryConfig{
			MaxAttempts: hclCfg.Retry.MaxAttempts,
			BaseDelayMS: hclCfg.Retry.BaseDelayMS,
			MaxDelayMS:  hclCfg.Retry.MaxDelayMS,
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}
