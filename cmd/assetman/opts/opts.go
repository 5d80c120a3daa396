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

// Package opts carries the shared dependencies of the CLI commands
package opts

import (
	"context"

	"assetman/pkg/catalog"
	"assetman/pkg/config"
	"assetman/pkg/log"
)

// 🎯 RootOpts holds what every subcommand needs
type RootOpts struct {
	Config  *config.Config
	Console *log.Console

	// NewClient builds the catalog client lazily, so commands that never
	// touch the remote (help, completion) skip credential loading
	NewClient func(ctx context.Context) (catalog.Client, error)
}

// RetryPolicy translates the config retry knobs into the engine's policy
func (o *RootOpts) RetryPolicy() catalog.RetryPolicy {
	return catalog.RetryPolicy{
		MaxAttempts: o.Config.Retry.MaxAttempts,
		BaseDelay:   o.Config.Retry.BaseDelay(),
		MaxDelay:    o.Config.Retry.MaxDelay(),
	}
}
