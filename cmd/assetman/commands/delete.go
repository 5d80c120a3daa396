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

// NewDeleteCmd creates the delete command
func NewDeleteCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete PATH",
		Short: "Recursively delete a subtree",
		Long: `Delete removes the subtree under PATH, children strictly before their
parents since the catalog refuses to delete a non-empty container. A
child that cannot be deleted leaves its ancestors in place; everything
else is still removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := batch.NewRequest(batch.OpDelete, args[0])
			return runBatch(cmd.Context(), o, req)
		},
	}

	return cmd
}
