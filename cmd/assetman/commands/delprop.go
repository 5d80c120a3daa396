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

// NewDeletePropertyCmd creates the delete-property command
func NewDeletePropertyCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-property PATH KEY",
		Short: "Remove a metadata property across a subtree",
		Long: `Delete-property removes the metadata key KEY from every asset under
PATH. Assets that never carried the key still count as succeeded.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := batch.NewRequest(batch.OpDeleteProperty, args[0])
			req.PropertyKey = args[1]
			return runBatch(cmd.Context(), o, req)
		},
	}

	return cmd
}
