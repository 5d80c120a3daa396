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

package commands

import (
	"github.com/spf13/cobra"

	"assetman/cmd/assetman/opts"
	"assetman/pkg/batch"
)

// NewMoveCmd creates the move command
func NewMoveCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move SOURCE DEST",
		Short: "Recursively move a subtree to a new location",
		Long: `Move relocates the subtree under SOURCE to DEST. Each leaf is copied
first and its source deleted only after the copy succeeded, so a failed
move never loses data. Source containers are removed once everything
underneath them has moved; a partially-moved container stays in place.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := batch.NewRequest(batch.OpMove, args[0])
			req.DestRoot = args[1]
			return runBatch(cmd.Context(), o, req)
		},
	}

	return cmd
}
