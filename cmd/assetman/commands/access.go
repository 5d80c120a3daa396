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
	"gitlab.com/tozd/go/errors"

	"assetman/cmd/assetman/opts"
	"assetman/pkg/batch"
	"assetman/pkg/catalog"
)

// NewAccessCmd creates the access command
func NewAccessCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access PATH PRINCIPAL ROLE",
		Short: "Change permissions across a subtree",
		Long: `Access grants or revokes one principal's role on every asset under PATH.

PRINCIPAL is an email address (group and service accounts are inferred
from their domain, or use an explicit user:/group:/serviceAccount:
prefix) or the literal "allUsers" for public access.

ROLE is reader, writer, or delete; delete revokes every grant the
principal holds. Re-applying a grant that already exists succeeds
without a remote write.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			principal := catalog.ParsePrincipal(args[1])
			role, err := catalog.ParseRole(args[2])
			if err != nil {
				return errors.Errorf("invalid role: %w", err)
			}

			req := batch.NewRequest(batch.OpSetAccess, args[0])
			req.Principal = principal
			req.Role = role
			return runBatch(cmd.Context(), o, req)
		},
	}

	return cmd
}
