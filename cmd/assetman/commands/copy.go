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

// NewCopyCmd creates the copy command
func NewCopyCmd(o *opts.RootOpts) *cobra.Command {
	var childrenOnly bool

	cmd := &cobra.Command{
		Use:   "copy SOURCE DEST",
		Short: "Recursively copy a subtree to a new location",
		Long: `Copy replicates the subtree under SOURCE at DEST, creating destination
containers before their children. The source may contain shell-style
wildcards in its path segments; each match is copied under DEST by its
own name.

With --children-only, only the direct children of SOURCE are copied,
landing directly under DEST without the relative path structure.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := batch.NewRequest(batch.OpCopy, args[0])
			req.DestRoot = args[1]
			req.ChildrenOnly = childrenOnly
			return runBatch(cmd.Context(), o, req)
		},
	}

	cmd.Flags().BoolVar(&childrenOnly, "children-only", false, "copy only the direct children of SOURCE")

	return cmd
}
